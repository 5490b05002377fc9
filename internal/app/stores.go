package app

import (
	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/data/graph"
	"github.com/abdelatifsd/Adjacent/internal/jobs/inference"
	"github.com/abdelatifsd/Adjacent/internal/platform/neo4jdb"
)

type Stores struct {
	Schema   graph.Schema
	Products *graph.ProductStore
	Edges    *graph.EdgeStore
	Vectors  *graph.VectorStore
}

func wireStores(db *neo4jdb.Client, cfg config.Neo4jConfig) (Stores, error) {
	schema, err := graph.NewSchema(cfg)
	if err != nil {
		return Stores{}, wrap("graph schema", err)
	}
	products, err := graph.NewProductStore(db, schema)
	if err != nil {
		return Stores{}, wrap("product store", err)
	}
	edges, err := graph.NewEdgeStore(db, schema)
	if err != nil {
		return Stores{}, wrap("edge store", err)
	}
	vectors, err := graph.NewVectorStore(db, schema)
	if err != nil {
		return Stores{}, wrap("vector store", err)
	}
	return Stores{Schema: schema, Products: products, Edges: edges, Vectors: vectors}, nil
}

// edgeRepository is the slice of both stores the inference worker writes through.
type edgeRepository struct {
	*graph.EdgeStore
	*graph.ProductStore
}

var _ inference.EdgeRepository = edgeRepository{}
