// Package inference turns one scheduled job into durable graph edges.
package inference

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/abdelatifsd/Adjacent/internal/domain"
	"github.com/abdelatifsd/Adjacent/internal/edges"
	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/llm"
	"github.com/abdelatifsd/Adjacent/internal/observability"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

const opInferEdges = "infer_edges"

type EdgeRepository interface {
	GetEdge(ctx context.Context, edgeID string) (*domain.Edge, error)
	UpsertEdge(ctx context.Context, e domain.Edge) error
	GetProducts(ctx context.Context, ids []string) ([]domain.Product, error)
	MarkAnchorInferred(ctx context.Context, id string) error
}

type Worker struct {
	repo         EdgeRepository
	inferencer   llm.EdgeInferencer
	materializer *edges.Materializer
	sink         observability.Sink
	log          *logger.Logger
}

var _ jobs.Handler = (*Worker)(nil)

func NewWorker(repo EdgeRepository, inferencer llm.EdgeInferencer, sink observability.Sink, log *logger.Logger) (*Worker, error) {
	if repo == nil || inferencer == nil {
		return nil, fmt.Errorf("inference worker missing deps")
	}
	return &Worker{
		repo:         repo,
		inferencer:   inferencer,
		materializer: edges.NewMaterializer(),
		sink:         observability.OrNop(sink),
		log:          log.With("component", "InferenceWorker"),
	}, nil
}

// WithMaterializer swaps the materializer, mainly to pin its clock in tests.
func (w *Worker) WithMaterializer(m *edges.Materializer) *Worker {
	w.materializer = m
	return w
}

func (w *Worker) Type() string { return jobs.TypeInferEdges }

// Handle never returns an error; failures are carried in the result.
func (w *Worker) Handle(ctx context.Context, job jobs.Job) (*jobs.InferenceResult, error) {
	return w.Run(ctx, job.ID, job.Payload), nil
}

// Run executes one job: fetch, one model call, then read-materialize-write
// per patch. Edges written before a failure stay written.
func (w *Worker) Run(ctx context.Context, jobID string, p jobs.InferencePayload) *jobs.InferenceResult {
	log := w.log.With("job_id", jobID, "anchor_id", p.AnchorID, "trace_id", p.TraceID)
	total := observability.StartSpan(ctx, w.sink, "infer_edges_total", opInferEdges, p.TraceID,
		"job_id", jobID, "anchor_id", p.AnchorID)

	res, err := w.run(ctx, log, jobID, p)
	if err != nil {
		failed := jobs.FailedResult(p.AnchorID, err)
		if res != nil {
			res.ErrorType, res.Error = failed.ErrorType, failed.Error
			failed = res
		}
		log.Warn("inference job failed", "error_type", failed.ErrorType, "error", err)
		total.End(err)
		return failed
	}
	total.SetCount("edges_created", res.EdgesCreated)
	total.SetCount("edges_reinforced", res.EdgesReinforced)
	total.SetCount("edges_noop_existing", res.EdgesNoopExisting)
	total.End(nil)

	observability.Count(ctx, w.sink, "edges_created", opInferEdges, p.TraceID, float64(res.EdgesCreated))
	observability.Count(ctx, w.sink, "edges_reinforced", opInferEdges, p.TraceID, float64(res.EdgesReinforced))
	log.Info("inference complete",
		"candidates_resolved", res.CandidatesResolved,
		"patches_received", res.PatchesReceived,
		"edges_created", res.EdgesCreated,
		"edges_reinforced", res.EdgesReinforced,
		"edges_noop_existing", res.EdgesNoopExisting,
	)
	return res
}

func (w *Worker) run(ctx context.Context, log *logger.Logger, jobID string, p jobs.InferencePayload) (*jobs.InferenceResult, error) {
	if err := p.Validate(); err != nil {
		return nil, errkind.InvalidInput("inference.payload", err.Error())
	}
	res := &jobs.InferenceResult{AnchorID: p.AnchorID}

	anchor, candidates, err := w.fetch(ctx, p)
	if err != nil {
		return nil, err
	}
	res.CandidatesResolved = len(candidates)
	if len(candidates) == 0 {
		log.Info("no candidates resolved; nothing to infer")
		return res, nil
	}

	anchorView, err := domain.Project(*anchor)
	if err != nil {
		return nil, err
	}
	views := make([]domain.LLMProductView, 0, len(candidates))
	for _, c := range candidates {
		v, err := domain.Project(c)
		if err != nil {
			log.Warn("dropping candidate without description", "candidate_id", c.ID)
			continue
		}
		views = append(views, v)
	}
	if len(views) == 0 {
		return res, nil
	}

	span := observability.StartSpan(ctx, w.sink, "llm_call", opInferEdges, p.TraceID, "candidates", len(views))
	out, err := w.inferencer.InferEdges(ctx, anchorView, views)
	span.End(err)
	if err != nil {
		return nil, err
	}
	res.LLM = &out.Metadata
	res.PatchesReceived = len(out.Patches)

	known := make(map[string]struct{}, len(views)+1)
	known[anchorView.ID] = struct{}{}
	for _, v := range views {
		known[v.ID] = struct{}{}
	}

	span = observability.StartSpan(ctx, w.sink, "materialize_and_upsert", opInferEdges, p.TraceID)
	err = w.apply(ctx, log, jobID, p.AnchorID, out.Patches, known, res)
	span.SetCount("edges_created", res.EdgesCreated)
	span.SetCount("edges_reinforced", res.EdgesReinforced)
	span.SetCount("edges_noop_existing", res.EdgesNoopExisting)
	span.End(err)
	if err != nil {
		return res, err
	}

	span = observability.StartSpan(ctx, w.sink, "mark_anchor_inferred", opInferEdges, p.TraceID)
	err = w.repo.MarkAnchorInferred(ctx, p.AnchorID)
	span.End(err)
	if err != nil {
		return res, err
	}
	return res, nil
}

// fetch loads the anchor and candidates concurrently. The anchor is removed
// from the candidate list if the payload included it.
func (w *Worker) fetch(ctx context.Context, p jobs.InferencePayload) (*domain.Product, []domain.Product, error) {
	span := observability.StartSpan(ctx, w.sink, "fetch_products", opInferEdges, p.TraceID)
	var (
		anchors    []domain.Product
		candidates []domain.Product
	)
	ids := slices.DeleteFunc(slices.Clone(p.CandidateIDs), func(id string) bool { return id == p.AnchorID })

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		anchors, err = w.repo.GetProducts(gctx, []string{p.AnchorID})
		return err
	})
	g.Go(func() error {
		if len(ids) == 0 {
			return nil
		}
		var err error
		candidates, err = w.repo.GetProducts(gctx, ids)
		return err
	})
	err := g.Wait()
	if err == nil && len(anchors) == 0 {
		err = errkind.NotFound("inference.fetch", "product not found: "+p.AnchorID)
	}
	span.SetCount("candidates_resolved", len(candidates))
	span.End(err)
	if err != nil {
		return nil, nil, err
	}
	return &anchors[0], candidates, nil
}

func (w *Worker) apply(ctx context.Context, log *logger.Logger, jobID, anchorID string, patches []domain.EdgePatch, known map[string]struct{}, res *jobs.InferenceResult) error {
	for _, patch := range patches {
		if reason := rejectPatch(patch, known); reason != "" {
			res.PatchesDropped++
			log.Warn("dropping patch", "reason", reason, "edge_type", patch.EdgeType, "from_id", patch.FromID, "to_id", patch.ToID)
			continue
		}
		if err := ctx.Err(); err != nil {
			return errkind.Unavailable("inference.apply", err)
		}
		a, b := edges.CanonicalPair(patch.FromID, patch.ToID)
		existing, err := w.repo.GetEdge(ctx, edges.ComputeEdgeID(patch.EdgeType, a, b))
		if err != nil {
			return err
		}
		edge, outcome := w.materializer.Materialize(patch, anchorID, existing, edges.Provenance{
			Kind:  edges.KindFor(a, b, anchorID),
			JobID: jobID,
		})
		if err := w.repo.UpsertEdge(ctx, edge); err != nil {
			return err
		}
		switch outcome {
		case edges.OutcomeCreated:
			res.EdgesCreated++
			if edge.CreatedKind == domain.CreatedKindAnchorCandidate {
				res.AnchorEdgesCreated++
			} else {
				res.CandidateEdgesCreated++
			}
		case edges.OutcomeReinforced:
			res.EdgesReinforced++
		case edges.OutcomeNoopExisting:
			res.EdgesNoopExisting++
		}
	}
	return nil
}

// rejectPatch returns why a patch cannot be applied, or "" when it can.
func rejectPatch(p domain.EdgePatch, known map[string]struct{}) string {
	if p.EdgeType == "" {
		return "missing edge_type"
	}
	if p.FromID == p.ToID {
		return "self edge"
	}
	if _, ok := known[p.FromID]; !ok {
		return "unknown from_id"
	}
	if _, ok := known[p.ToID]; !ok {
		return "unknown to_id"
	}
	return ""
}
