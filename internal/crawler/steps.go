package crawler

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/readyscan/internal/fetch"
	"github.com/nao1215/readyscan/internal/model"
	"github.com/nao1215/readyscan/internal/pipeline"
)

// PageContext carries one fetched page through the per-page steps. Each
// step reads what earlier steps stored and adds its own output.
type PageContext struct {
	// URL is the frontier URL that was fetched.
	URL string

	// IsSeed is true for the seed page.
	IsSeed bool

	Response *fetch.Response
	Document *goquery.Document

	// Links is set by the links step.
	Links []Link

	// StructuredData is set by the structured-data step.
	StructuredData []model.StructuredDataRecord

	// Content is set by the content step.
	Content *PageContent
}

// PageStep is a per-page processing step.
type PageStep = pipeline.Step[*PageContext]

// Names of the built-in steps, in execution order.
const (
	StepLinks          = "links"
	StepStructuredData = "structured-data"
	StepContent        = "content"
)

func (s *Spider) newPagePipeline() *pipeline.Pipeline[*PageContext] {
	p := pipeline.New[*PageContext](
		pipeline.WithLogger(s.logger),
		pipeline.WithContinueOnError(true),
		pipeline.WithAtomic(true),
	)
	p.AddSteps(
		pipeline.NewStep(StepLinks, s.linkStep),
		pipeline.NewStep(StepStructuredData, s.structuredDataStep),
		pipeline.NewStep(StepContent, s.contentStep),
	)
	p.AddSteps(s.extraSteps...)
	return p
}

// linkStep counts accepted links and enqueues those not yet queued.
func (s *Spider) linkStep(_ context.Context, pc *PageContext) error {
	pc.Links = ExtractLinks(pc.Document, pc.URL, s.filter, s.visitedView())
	for _, l := range pc.Links {
		s.agg.CountLink(l.Internal)
		s.frontier.Push(l.URL)
	}
	return nil
}

func (s *Spider) structuredDataStep(_ context.Context, pc *PageContext) error {
	blocks := ExtractStructuredData(pc.Document, pc.URL)
	for _, b := range blocks {
		if b.Err != nil {
			s.logger.Debug("structured data skipped", "url", pc.URL, "error", b.Err)
		}
	}
	pc.StructuredData = s.agg.AddStructuredData(blocks)
	return nil
}

// contentStep extracts the page record and commits it, which also counts
// the page as crawled.
func (s *Spider) contentStep(_ context.Context, pc *PageContext) error {
	pc.Content = ExtractContent(pc.Document, pc.URL)
	if pc.IsSeed {
		s.agg.SetSeedInfo(pc.Content.Record.Title, pc.Content.Record.MetaDescription)
	}
	s.agg.AddPage(pc.Content)
	return nil
}
