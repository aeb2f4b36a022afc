// Package knowledge mirrors the indexed documents into a Neo4j graph of
// sources and their chunks.
package knowledge

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/fabfab/career-agent/vectorstore"
)

type Stats struct {
	Sources   int            `json:"sources"`
	Chunks    int            `json:"chunks"`
	PerSource map[string]int `json:"per_source,omitempty"`
}

type Catalog struct {
	driver neo4j.DriverWithContext
}

func NewCatalog(driver neo4j.DriverWithContext) *Catalog {
	return &Catalog{driver: driver}
}

// SyncSource merges records into the chunk nodes of source.
func (c *Catalog) SyncSource(ctx context.Context, source string, records []vectorstore.Record) error {
	if c == nil || c.driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}
	if source == "" {
		return fmt.Errorf("source name is empty")
	}

	chunks := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		chunks = append(chunks, map[string]any{
			"id":    rec.ID,
			"index": rec.Chunk.Index,
			"text":  rec.Chunk.Content,
		})
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (s:Source {name: $source})
			SET s.updated_at = datetime()
		`, map[string]any{"source": source}); err != nil {
			return nil, fmt.Errorf("upsert source node: %w", err)
		}

		if _, err := tx.Run(ctx, `
			UNWIND $chunks AS chunk
			MATCH (s:Source {name: $source})
			MERGE (c:Chunk {id: chunk.id})
			SET c.index = chunk.index,
			    c.text = chunk.text
			MERGE (s)-[:HAS_CHUNK {order: chunk.index}]->(c)
		`, map[string]any{"source": source, "chunks": chunks}); err != nil {
			return nil, fmt.Errorf("upsert chunk nodes: %w", err)
		}

		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("sync source %s: %w", source, err)
	}
	return nil
}

// DeleteSource removes source and all of its chunk nodes.
func (c *Catalog) DeleteSource(ctx context.Context, source string) error {
	if c == nil || c.driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MATCH (s:Source {name: $source})
			OPTIONAL MATCH (s)-[:HAS_CHUNK]->(c:Chunk)
			DETACH DELETE c, s
		`, map[string]any{"source": source}); err != nil {
			return nil, fmt.Errorf("delete source nodes: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("delete source %s: %w", source, err)
	}
	return nil
}

// Stats counts sources and chunks in the graph.
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	if c == nil || c.driver == nil {
		return Stats{}, fmt.Errorf("neo4j driver is nil")
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (s:Source)
		OPTIONAL MATCH (s)-[:HAS_CHUNK]->(c:Chunk)
		RETURN s.name AS name, count(DISTINCT c) AS chunkCount
		ORDER BY name
	`, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("run neo4j stats query: %w", err)
	}

	stats := Stats{PerSource: map[string]int{}}
	for result.Next(ctx) {
		record := result.Record()
		nameVal, _ := record.Get("name")
		countVal, _ := record.Get("chunkCount")
		name, ok := nameVal.(string)
		if !ok {
			continue
		}
		count, _ := toInt(countVal)
		stats.PerSource[name] = count
		stats.Sources++
		stats.Chunks += count
	}
	if err := result.Err(); err != nil {
		return Stats{}, fmt.Errorf("neo4j stats result error: %w", err)
	}

	return stats, nil
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

var _ vectorstore.Catalog = (*Catalog)(nil)
