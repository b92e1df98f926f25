package infraction

import (
	"strconv"
	"strings"
)

// ReportRef is the query shape of a paged batch report. No session state
// survives between interactions, so the previously computed not-found,
// forbidden, and skipped sets ride inside the control token and are
// reconstructed here; the mutated set is re-queried from the store.
type ReportRef struct {
	Action    Action
	GuildID   string
	NotFound  []int64
	Forbidden []int64
	Skipped   []int64
}

// EncodeReportParams flattens a report's query shape into codec parameters.
func EncodeReportParams(r Report) []string {
	return []string{
		string(r.Action),
		r.GuildID,
		joinIDs(r.NotFound),
		joinIDs(r.Forbidden),
		joinIDs(r.Skipped),
	}
}

// ParseReportParams is the inverse of EncodeReportParams.
func ParseReportParams(params []string) (ReportRef, error) {
	if len(params) != 5 {
		return ReportRef{}, ErrInvalidInput
	}

	action := Action(params[0])
	if action != ActionArchive && action != ActionRestore {
		return ReportRef{}, ErrInvalidInput
	}
	if params[1] == "" {
		return ReportRef{}, ErrInvalidInput
	}

	ref := ReportRef{Action: action, GuildID: params[1]}
	var err error
	if ref.NotFound, err = splitIDs(params[2]); err != nil {
		return ReportRef{}, err
	}
	if ref.Forbidden, err = splitIDs(params[3]); err != nil {
		return ReportRef{}, err
	}
	if ref.Skipped, err = splitIDs(params[4]); err != nil {
		return ReportRef{}, err
	}
	return ref, nil
}

func joinIDs(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, ErrInvalidInput
		}
		out = append(out, id)
	}
	return out, nil
}
