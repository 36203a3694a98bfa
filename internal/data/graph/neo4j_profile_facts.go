package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
	"github.com/yungbote/relocation-backend/internal/platform/neo4jdb"
)

// UpsertProfileFacts projects the profile's active facts into
// (:Profile)-[:HAS_FACT {type}]->(:ProfileFact). Facts missing from rows are
// detached, so the graph mirrors the active set after each call.
func UpsertProfileFacts(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, profileID uuid.UUID, facts []*types.Fact) (int, error) {
	if client == nil || client.Driver == nil {
		return 0, nil
	}
	if profileID == uuid.Nil {
		return 0, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	rows := profileFactRows(profileID, facts, now)
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r["fact_id"].(string))
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	// Best-effort schema init.
	for _, stmt := range []string{
		`CREATE CONSTRAINT profile_id_unique IF NOT EXISTS FOR (p:Profile) REQUIRE p.id IS UNIQUE`,
		`CREATE CONSTRAINT profile_fact_id_unique IF NOT EXISTS FOR (f:ProfileFact) REQUIRE f.id IS UNIQUE`,
	} {
		if res, err := session.Run(ctx, stmt, nil); err != nil {
			if log != nil {
				log.Warn("neo4j schema init failed (continuing)", "error", err)
			}
		} else {
			_, _ = res.Consume(ctx)
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if res, err := tx.Run(ctx, `
MERGE (p:Profile {id: $profile_id})
SET p.synced_at = $synced_at
WITH p
OPTIONAL MATCH (p)-[:HAS_FACT]->(f:ProfileFact)
WHERE NOT f.id IN $fact_ids
DETACH DELETE f
`, map[string]any{"profile_id": profileID.String(), "synced_at": now, "fact_ids": ids}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(rows) == 0 {
			return nil, nil
		}

		res, err := tx.Run(ctx, `
UNWIND $rows AS r
MERGE (p:Profile {id: r.profile_id})
MERGE (f:ProfileFact {id: r.fact_id})
SET f.type = r.fact_type,
    f.value = r.value,
    f.source = r.source,
    f.confidence = r.confidence,
    f.is_user_verified = r.is_user_verified,
    f.updated_at = r.updated_at,
    f.synced_at = r.synced_at
MERGE (p)-[h:HAS_FACT]->(f)
SET h.type = r.fact_type
`, map[string]any{"rows": rows})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func profileFactRows(profileID uuid.UUID, facts []*types.Fact, syncedAt string) []map[string]any {
	rows := make([]map[string]any, 0, len(facts))
	for _, f := range facts {
		if f == nil || f.ID == uuid.Nil || !f.IsActive || f.ProfileID != profileID {
			continue
		}
		rows = append(rows, map[string]any{
			"profile_id":       profileID.String(),
			"fact_id":          f.ID.String(),
			"fact_type":        string(f.FactType),
			"value":            f.Value,
			"source":           string(f.Source),
			"confidence":       f.Confidence,
			"is_user_verified": f.IsUserVerified,
			"updated_at":       f.UpdatedAt.UTC().Format(time.RFC3339Nano),
			"synced_at":        syncedAt,
		})
	}
	return rows
}
