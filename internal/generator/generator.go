// Package generator composes the title policy, structure policy, and web
// search into a single generation request against the text-generation
// provider, validates the returned title against policy with a single
// bounded repair step, and records publish outcomes into the pattern
// history.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tkman/postpilot/internal/ai"
	"github.com/tkman/postpilot/internal/pattern"
	"github.com/tkman/postpilot/internal/websearch"
)

const defaultRecentWindow = 5

// SearchClient is the slice of the web-search aggregator the generator
// needs; it lets tests substitute a fake.
type SearchClient interface {
	Search(ctx context.Context, query string, opts websearch.Options) (*websearch.Response, error)
}

// Draft is the structured generation result handed to the publish step and
// the interactive CLI.
type Draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`

	// Filled by the image-placeholder resolution step.
	ThumbnailURL  string `json:"-"`
	ThumbnailKage string `json:"-"`

	Meta Meta `json:"-"`
}

// Meta carries generation metadata through to the recording step.
type Meta struct {
	Topic             string
	Category          string
	StructureType     string
	SectionKeys       []string
	TitleType         pattern.TitleType
	AllowedTitleTypes []pattern.TitleType
	TitleRepaired     bool
	SearchUsed        bool
}

// Options are the per-call knobs for Generate. Zero values fall back to the
// session defaults.
type Options struct {
	// Tone overrides the session's default tone.
	Tone string

	// Category scopes the recent-pattern window and is recorded with the
	// publish outcome. Empty means uncategorized ("unknown" in records).
	Category string

	// SearchContext supplies pre-fetched search results; when set, no
	// search call is made.
	SearchContext *websearch.Response

	// RecentPatterns supplies a pre-fetched history window; when set, the
	// pattern store is not consulted.
	RecentPatterns []pattern.PublishRecord

	// DisableSearch skips search entirely for this call.
	DisableSearch bool
}

// SessionConfig wires a Session's collaborators and defaults.
type SessionConfig struct {
	Provider ai.Provider
	Searcher SearchClient   // nil disables search
	Store    *pattern.Store // nil disables history and recording

	Tone         string
	NumericCap   float64 // zero means pattern.DefaultNumericCap
	RecentWindow int     // history reads per Generate, zero means 5

	SearchMaxResults int
	SearchTimeout    time.Duration
	EnrichTopResult  bool
}

// Session owns the per-interactive-session state: the provider handle and
// the last search response. Generate calls share nothing else; repeated
// calls interact only through the pattern store and caller options.
type Session struct {
	provider ai.Provider
	searcher SearchClient
	store    *pattern.Store

	tone         string
	numericCap   float64
	recentWindow int

	searchMaxResults int
	searchTimeout    time.Duration
	enrichTopResult  bool

	lastSearch *websearch.Response
}

// NewSession creates a generation session.
func NewSession(cfg SessionConfig) *Session {
	if cfg.NumericCap <= 0 {
		cfg.NumericCap = pattern.DefaultNumericCap
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = defaultRecentWindow
	}
	return &Session{
		provider:         cfg.Provider,
		searcher:         cfg.Searcher,
		store:            cfg.Store,
		tone:             cfg.Tone,
		numericCap:       cfg.NumericCap,
		recentWindow:     cfg.RecentWindow,
		searchMaxResults: cfg.SearchMaxResults,
		searchTimeout:    cfg.SearchTimeout,
		enrichTopResult:  cfg.EnrichTopResult,
	}
}

// LastSearch returns the most recent search response seen by this session,
// or nil. The CLI shows it on demand.
func (s *Session) LastSearch() *websearch.Response {
	return s.lastSearch
}

// Generate produces one post draft for the topic. Search failures degrade
// to context-free generation; a policy-violating title gets exactly one
// repair attempt and is otherwise accepted as-is.
func (s *Session) Generate(ctx context.Context, topic string, opts Options) (*Draft, error) {
	if topic == "" {
		return nil, fmt.Errorf("empty topic")
	}

	tone := opts.Tone
	if tone == "" {
		tone = s.tone
	}

	recent := s.resolveRecent(opts)
	policy := pattern.SelectAllowedTypes(recent, s.numericCap)
	tpl := pattern.SelectTemplate(topic, recent)

	slog.Info("generation policy computed",
		"topic", topic,
		"allowedTitleTypes", policy.Allowed,
		"numericRatio", policy.NumericRatio,
		"structureType", tpl.ID,
	)

	searchCtx, excerpt := s.resolveSearch(ctx, topic, opts)

	system, user := BuildPostPrompt(PromptInput{
		Topic:         topic,
		Tone:          tone,
		Search:        searchCtx,
		TopExcerpt:    excerpt,
		AllowedTypes:  policy.Allowed,
		RecentSummary: pattern.SummarizeRecent(recent),
		Template:      tpl,
	})

	raw, err := s.provider.CompleteJSON(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("generating post: %w", err)
	}

	var draft Draft
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &draft); err != nil {
		return nil, fmt.Errorf("parsing generation output: %w", err)
	}
	if draft.Title == "" || draft.Content == "" {
		return nil, fmt.Errorf("generation output missing title or content")
	}

	titleType, repaired := s.enforceTitlePolicy(ctx, &draft, topic, tone, policy)

	draft.Meta = Meta{
		Topic:             topic,
		Category:          opts.Category,
		StructureType:     tpl.ID,
		SectionKeys:       tpl.SectionKeys,
		TitleType:         titleType,
		AllowedTitleTypes: policy.Allowed,
		TitleRepaired:     repaired,
		SearchUsed:        searchCtx != nil,
	}
	return &draft, nil
}

// resolveRecent returns the caller-supplied window or reads one from the
// pattern store. Read failures degrade to an empty window.
func (s *Session) resolveRecent(opts Options) []pattern.PublishRecord {
	if opts.RecentPatterns != nil {
		return opts.RecentPatterns
	}
	if s.store == nil {
		return nil
	}

	recent, err := s.store.ReadRecent(opts.Category, s.recentWindow)
	if err != nil {
		slog.Warn("reading pattern history failed", "error", err)
		return nil
	}
	return recent
}

// resolveSearch returns the search context for the prompt, best-effort. A
// SearchError or any other failure yields nil context rather than failing
// the generation.
func (s *Session) resolveSearch(ctx context.Context, topic string, opts Options) (*websearch.Response, string) {
	if opts.SearchContext != nil {
		return opts.SearchContext, ""
	}
	if opts.DisableSearch || s.searcher == nil {
		return nil, ""
	}

	resp, err := s.searcher.Search(ctx, topic, websearch.Options{
		MaxResults: s.searchMaxResults,
		Timeout:    s.searchTimeout,
	})
	if err != nil {
		slog.Warn("web search failed, generating without context", "topic", topic, "error", err)
		return nil, ""
	}
	s.lastSearch = resp

	var excerpt string
	if s.enrichTopResult && len(resp.Results) > 0 {
		excerpt, err = websearch.FetchTopExcerpt(resp.Results[0].URL, s.searchTimeout)
		if err != nil {
			slog.Warn("top-result enrichment failed", "url", resp.Results[0].URL, "error", err)
		}
	}
	return resp, excerpt
}

// enforceTitlePolicy validates the draft title and issues at most one
// repair call. A repair that also violates the policy leaves the original
// title in place; the violation is soft and never blocks the draft.
func (s *Session) enforceTitlePolicy(ctx context.Context, draft *Draft, topic, tone string, policy pattern.TitlePolicy) (pattern.TitleType, bool) {
	ok, titleType := pattern.CheckTitle(draft.Title, policy)
	if ok {
		return titleType, false
	}

	slog.Info("title violates policy, attempting repair",
		"title", draft.Title,
		"titleType", titleType,
		"allowed", policy.Allowed,
	)

	system, user := BuildTitleRepairPrompt(topic, tone, policy.Allowed, draft.Content)
	reply, err := s.provider.Complete(ctx, system, user)
	if err != nil {
		slog.Warn("title repair call failed, keeping original", "error", err)
		return titleType, false
	}

	repairedTitle := cleanRepairedTitle(reply)
	if repairedOK, repairedType := pattern.CheckTitle(repairedTitle, policy); repairedOK && repairedTitle != "" {
		draft.Title = repairedTitle
		return repairedType, true
	}

	slog.Warn("repaired title still violates policy, keeping original", "title", draft.Title)
	return titleType, false
}

// RecordPublished appends a publish outcome to the pattern history. It is
// log-and-swallow: a recording failure must never roll back a publish.
func (s *Session) RecordPublished(draft *Draft, url, postID, category string) {
	if s.store == nil || draft == nil {
		return
	}
	if category == "" {
		category = draft.Meta.Category
	}
	s.store.RecordPublished(
		draft.Title, draft.Meta.Topic, draft.Content,
		url, postID, category,
		draft.Meta.StructureType, draft.Meta.SectionKeys,
	)
}
