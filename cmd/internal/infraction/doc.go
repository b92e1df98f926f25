// Package infraction holds the moderation record model, its persistence
// stores, and the batch mutation engine that archives and restores records.
//
// Identity model: an infraction id is a per-guild integer allocated once and
// never reissued. Archiving moves the row into the archive table under the
// same (guild, id); restoring moves it back with the original id and the
// original creation timestamp. For any (guild, id) at most one of the live
// row and the archived row exists at any time; the per-item transaction in
// the Postgres store plus the unique constraint on the counterpart table hold
// that invariant under concurrent batches.
package infraction
