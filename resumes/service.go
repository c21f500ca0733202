package resumes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/adeilh/digitally/llm"
	"github.com/adeilh/digitally/queue"
	"github.com/adeilh/digitally/users"
	"go.uber.org/zap"
)

// Accounts is the slice of the user service that analysis needs.
type Accounts interface {
	Get(ctx context.Context, id string) (users.User, error)
	Debit(ctx context.Context, id string) (users.User, error)
	Refund(ctx context.Context, id string) (users.User, error)
}

// File is an uploaded document.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	Metadata    Metadata
}

// Service stores uploads and runs ATS analyses through the shared AI queue.
type Service struct {
	store    Store
	accounts Accounts
	ai       llm.Completer
	queue    *queue.Queue
	parser   *llm.Parser
	log      *zap.Logger
}

func NewService(store Store, accounts Accounts, ai llm.Completer, q *queue.Queue, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		accounts: accounts,
		ai:       ai,
		queue:    q,
		parser:   llm.NewParser(log),
		log:      log,
	}
}

// Upload extracts text from f and stores it for owner, which may be empty.
func (s *Service) Upload(ctx context.Context, f File, owner string) (Resume, error) {
	if len(f.Data) == 0 {
		return Resume{}, ErrNoFile
	}
	if len(f.Data) > MaxFileSize {
		return Resume{}, ErrFileTooLarge
	}
	if !Accepted(f.Name, f.ContentType) {
		return Resume{}, ErrFileType
	}

	text, kind := ExtractText(f.ContentType, f.Data)
	text = strings.TrimSpace(text)
	if text == "" {
		text = unknownPlaceholder
	}
	r, err := s.store.Create(ctx, Resume{
		UserID:       owner,
		OriginalName: f.Name,
		MimeType:     mediaType(f.ContentType),
		Size:         int64(len(f.Data)),
		ParsedText:   truncate(text, MaxTextLength),
		AnalysisType: kind,
		Metadata:     f.Metadata,
	})
	if err != nil {
		return Resume{}, fmt.Errorf("resumes: upload: %w", err)
	}
	s.log.Info("resume uploaded", zap.String("id", r.ID), zap.String("type", r.MimeType), zap.Int64("size", r.Size))
	return r, nil
}

// UploadText stores pasted resume text for owner.
func (s *Service) UploadText(ctx context.Context, text, owner string, md Metadata) (Resume, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Resume{}, ErrNoFile
	}
	return s.Upload(ctx, File{Name: "pasted-resume.txt", ContentType: MimeText, Data: []byte(text), Metadata: md}, owner)
}

// Analyze runs the ATS audit on resume id on behalf of caller, which is
// empty for guests. Free-plan callers spend one credit, reserved before the
// model call and refunded when the analysis fails.
func (s *Service) Analyze(ctx context.Context, id, caller string) (Resume, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Resume{}, err
	}
	if !r.OwnedBy(caller) {
		return Resume{}, ErrNotAuthorized
	}

	charged := ""
	if caller != "" {
		u, err := s.accounts.Debit(ctx, caller)
		if errors.Is(err, users.ErrNoCredits) {
			return Resume{}, ErrNoCredits
		}
		if err != nil {
			return Resume{}, err
		}
		if u.Plan == users.PlanFree {
			charged = u.ID
		}
	}

	r, err = s.analyze(ctx, r)
	if err != nil && charged != "" {
		if _, rerr := s.accounts.Refund(context.WithoutCancel(ctx), charged); rerr != nil {
			s.log.Error("resumes: refund credit", zap.String("user", charged), zap.Error(rerr))
		}
	}
	return r, err
}

func (s *Service) analyze(ctx context.Context, r Resume) (Resume, error) {
	prompt := buildAnalysisPrompt(r.ParsedText)
	reply, err := queue.Submit(ctx, s.queue, func(ctx context.Context) (llm.Reply, error) {
		return s.ai.Call(ctx, prompt, analysisSystem,
			llm.WithMockContent(mockAnalysis),
			llm.WithUnavailableContent(""))
	})
	if err != nil {
		return Resume{}, fmt.Errorf("resumes: analyze %s: %w", r.ID, err)
	}
	if reply.Degraded() {
		return Resume{}, ErrAIUnavailable
	}

	var a Analysis
	if err := s.parser.Parse(reply.Content, &a); err != nil {
		var pe *llm.ParseError
		if errors.As(err, &pe) {
			return Resume{}, ErrAnalysisUnparseable
		}
		return Resume{}, err
	}
	a.Score = math.Round(min(max(a.Score, 0), 100))
	r.Analysis = &a

	r, err = s.store.Update(ctx, r)
	if err != nil {
		return Resume{}, fmt.Errorf("resumes: save analysis: %w", err)
	}
	return r, nil
}

// Get returns resume id if caller may read it.
func (s *Service) Get(ctx context.Context, id, caller string) (Resume, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Resume{}, err
	}
	if !r.OwnedBy(caller) {
		return Resume{}, ErrNotAuthorized
	}
	return r, nil
}

// List returns the caller's resumes plus any of ids the caller may read,
// newest first. No caller and no ids yields an empty list.
func (s *Service) List(ctx context.Context, caller string, ids []string) ([]Summary, error) {
	f := Filter{UserID: caller, IDs: compact(ids)}
	if f.Empty() {
		return []Summary{}, nil
	}
	rs, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(rs))
	for _, r := range rs {
		if !r.OwnedBy(caller) {
			continue
		}
		sum := Summary{ID: r.ID, OriginalName: r.OriginalName, CreatedAt: r.CreatedAt}
		if r.Analysis != nil {
			score := r.Analysis.Score
			sum.Score = &score
		}
		out = append(out, sum)
	}
	return out, nil
}

func compact(ids []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
