package app

import (
	"context"

	"warden/cmd/internal/infraction"
)

// envAuthorizer is the default authorization predicate: an actor may mutate
// records it logged itself, and actors listed as elevated may mutate any
// record. Deployments integrating platform role checks supply their own
// infraction.Authorizer instead.
type envAuthorizer struct {
	elevated map[string]struct{}
}

func newEnvAuthorizer(actorIDs []string) envAuthorizer {
	m := make(map[string]struct{}, len(actorIDs))
	for _, id := range actorIDs {
		m[id] = struct{}{}
	}
	return envAuthorizer{elevated: m}
}

func (a envAuthorizer) IsElevated(_ context.Context, _, actorID string) bool {
	_, ok := a.elevated[actorID]
	return ok
}

func (a envAuthorizer) IsOwner(actorID string, rec infraction.Infraction) bool {
	return actorID != "" && rec.ActorID == actorID
}
