package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/tkaracan/caliper/internal/coupling"
	"github.com/tkaracan/caliper/internal/graph"
	"github.com/tkaracan/caliper/internal/graphstore"
)

// Neo4jRepository implements graphstore.Repository using Neo4j. Modules become
// (:Module) nodes scoped by project, dependencies become [:DEPENDS_ON]
// relationships, and self-loops a relationship from a node to itself.
type Neo4jRepository struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j creates a Neo4j-backed repository and verifies connectivity.
func NewNeo4j(ctx context.Context, uri, username, password string) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jRepository{driver: driver}, nil
}

func (r *Neo4jRepository) StoreRun(ctx context.Context, project string, g *graph.DependencyGraph, metrics map[string]coupling.ModuleMetrics) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Replace the previous run for this project wholesale.
		if _, err := tx.Run(ctx,
			"MATCH (m:Module {project: $project}) DETACH DELETE m",
			map[string]any{"project": project}); err != nil {
			return nil, err
		}

		for _, mod := range g.Modules {
			params := map[string]any{
				"project":  project,
				"name":     mod.Name,
				"total":    mod.TotalTypes,
				"abstract": mod.AbstractTypes,
				"selfLoop": g.HasSelfLoop(mod.Name),
			}
			query := "MERGE (m:Module {project: $project, name: $name}) " +
				"SET m.total_types = $total, m.abstract_types = $abstract, m.self_loop = $selfLoop"
			if mm, ok := metrics[mod.Name]; ok {
				params["ca"] = mm.Ca
				params["ce"] = mm.Ce
				params["zone"] = string(mm.Zone)
				query += ", m.ca = $ca, m.ce = $ce, m.zone = $zone"
				if mm.Instability.Defined {
					params["instability"] = mm.Instability.Value
					query += ", m.instability = $instability"
				}
				if mm.Abstractness.Defined {
					params["abstractness"] = mm.Abstractness.Value
					query += ", m.abstractness = $abstractness"
				}
				if mm.Distance.Defined {
					params["distance"] = mm.Distance.Value
					query += ", m.distance = $distance"
				}
			}
			if _, err := tx.Run(ctx, query, params); err != nil {
				return nil, fmt.Errorf("store module %s: %w", mod.Name, err)
			}
		}

		for _, d := range g.Dependencies {
			if _, err := tx.Run(ctx,
				"MATCH (a:Module {project: $project, name: $from}), (b:Module {project: $project, name: $to}) "+
					"MERGE (a)-[:DEPENDS_ON]->(b)",
				map[string]any{"project": project, "from": d.From, "to": d.To}); err != nil {
				return nil, fmt.Errorf("store dependency %s->%s: %w", d.From, d.To, err)
			}
		}
		for _, name := range g.SelfLoops {
			if _, err := tx.Run(ctx,
				"MATCH (m:Module {project: $project, name: $name}) MERGE (m)-[:DEPENDS_ON {self: true}]->(m)",
				map[string]any{"project": project, "name": name}); err != nil {
				return nil, fmt.Errorf("store self-loop %s: %w", name, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("store run for %s: %w", project, err)
	}
	return nil
}

func (r *Neo4jRepository) LoadGraph(ctx context.Context, project string) (*graph.DependencyGraph, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (m:Module {project: $project}) "+
				"RETURN m.name AS name, m.total_types AS total, m.abstract_types AS abstract, m.self_loop AS selfLoop",
			map[string]any{"project": project})
		if err != nil {
			return nil, err
		}

		var modules []graph.Module
		var selfLoops []string
		for records.Next(ctx) {
			rec := records.Record()
			name, _ := rec.Get("name")
			total, _ := rec.Get("total")
			abstract, _ := rec.Get("abstract")
			selfLoop, _ := rec.Get("selfLoop")

			modules = append(modules, graph.Module{
				Name:          name.(string),
				TotalTypes:    int(total.(int64)),
				AbstractTypes: int(abstract.(int64)),
			})
			if loop, ok := selfLoop.(bool); ok && loop {
				selfLoops = append(selfLoops, name.(string))
			}
		}

		edges, err := tx.Run(ctx,
			"MATCH (a:Module {project: $project})-[d:DEPENDS_ON]->(b:Module {project: $project}) "+
				"WHERE d.self IS NULL RETURN a.name AS from, b.name AS to",
			map[string]any{"project": project})
		if err != nil {
			return nil, err
		}

		var deps []graph.Dependency
		for edges.Next(ctx) {
			rec := edges.Record()
			from, _ := rec.Get("from")
			to, _ := rec.Get("to")
			deps = append(deps, graph.Dependency{From: from.(string), To: to.(string)})
		}

		return graph.New(modules, deps, selfLoops), nil
	})
	if err != nil {
		return nil, fmt.Errorf("load graph for %s: %w", project, err)
	}
	return result.(*graph.DependencyGraph), nil
}

func (r *Neo4jRepository) QueryDependents(ctx context.Context, project, module string) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (a:Module {project: $project})-[d:DEPENDS_ON]->(:Module {project: $project, name: $name}) "+
				"WHERE d.self IS NULL RETURN a.name AS name ORDER BY name",
			map[string]any{"project": project, "name": module})
		if err != nil {
			return nil, err
		}
		var names []string
		for records.Next(ctx) {
			n, _ := records.Record().Get("name")
			names = append(names, n.(string))
		}
		return names, nil
	})
	if err != nil {
		return nil, fmt.Errorf("query dependents of %s: %w", module, err)
	}
	return result.([]string), nil
}

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

var _ graphstore.Repository = (*Neo4jRepository)(nil)
