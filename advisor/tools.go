package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/adeilh/digitally/leads"
	"github.com/adeilh/digitally/llm"
	"go.uber.org/zap"
)

var (
	ErrMissingMessage  = errors.New("advisor: message required")
	ErrMissingTopic    = errors.New("advisor: topic required")
	ErrMissingBullet   = errors.New("advisor: bullet point required")
	ErrMissingBusiness = errors.New("advisor: business type required")

	errNotObject = errors.New("advisor: json object expected")
)

// RoastResult is the payload of a website roast.
type RoastResult struct {
	Score     float64  `json:"score"`
	Headline  string   `json:"headline"`
	Roast     string   `json:"roast"`
	QuickWins []string `json:"quickWins"`
	Verdict   string   `json:"verdict"`
}

// Roast critiques the site at rawURL.
func (s *Service) Roast(ctx context.Context, rawURL string) (Result, error) {
	site, err := NormalizeURL(rawURL)
	if err != nil {
		return Result{}, err
	}
	key := roastKey(site)
	return s.resolve(ctx, tiered{
		name:     "roast",
		key:      key,
		criteria: leads.Criteria{Type: leads.TypeRoast, Fingerprint: key},
		fallback: roastFallback,
		shape:    func() any { return new(RoastResult) },
		prompt:   func(ctx context.Context) string { return s.roastPrompt(ctx, site) },
		system:   roastSystem,
		record: func(payload json.RawMessage) (leads.Lead, error) {
			return leads.Lead{
				Service:     "Website Roast",
				Message:     "URL: " + site,
				Type:        leads.TypeRoast,
				Fingerprint: key,
				Details:     payload,
			}, nil
		},
	}), nil
}

func (s *Service) roastPrompt(ctx context.Context, site string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Roast this website: %s\n\n", site)
	if s.opts.Snapshotter != nil {
		snap, err := s.opts.Snapshotter.Snapshot(ctx, site)
		if err != nil {
			s.log.Debug("advisor: page snapshot skipped", zap.String("url", site), zap.Error(err))
		} else if text := snap.String(); text != "" {
			b.WriteString("What the page currently shows:\n")
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	}
	b.WriteString(roastInstructions)
	return b.String()
}

// LeadInfo is the lead qualification questionnaire.
type LeadInfo struct {
	BusinessType     string `json:"businessType"`
	CurrentWebsite   string `json:"currentWebsite"`
	BiggestChallenge string `json:"biggestChallenge"`
	Budget           string `json:"budget"`
	Timeline         string `json:"timeline"`
}

// Qualification is the payload of a lead qualification.
type Qualification struct {
	Headline            string   `json:"headline"`
	Diagnosis           string   `json:"diagnosis"`
	RecommendedServices []string `json:"recommendedServices"`
	PotentialROI        string   `json:"potentialROI"`
	Urgency             string   `json:"urgency"`
	NextStep            string   `json:"nextStep"`
}

// Qualify produces a personalised recommendation for a prospect and records
// the lead.
func (s *Service) Qualify(ctx context.Context, in LeadInfo) (Result, error) {
	in.BusinessType = strings.TrimSpace(in.BusinessType)
	if in.BusinessType == "" {
		return Result{}, ErrMissingBusiness
	}
	key := qualifyKey(in)
	return s.resolve(ctx, tiered{
		name:     "qualify",
		key:      key,
		criteria: leads.Criteria{Type: leads.TypeQualify, Fingerprint: key},
		fallback: qualifyFallback,
		shape:    func() any { return new(Qualification) },
		prompt:   func(context.Context) string { return qualifyPrompt(in) },
		system:   qualifySystem,
		callOpts: []llm.CallOption{llm.WithMockContent(qualifyMock), llm.WithUnavailableContent(qualifyUnavailable)},
		record: func(payload json.RawMessage) (leads.Lead, error) {
			details, err := withFields(payload, map[string]string{
				"timeline":       in.Timeline,
				"currentWebsite": in.CurrentWebsite,
			})
			if err != nil {
				return leads.Lead{}, err
			}
			return leads.Lead{
				Service:     in.BusinessType,
				Budget:      in.Budget,
				Message:     "Challenge: " + in.BiggestChallenge,
				Type:        leads.TypeQualify,
				Fingerprint: key,
				Details:     details,
			}, nil
		},
	}), nil
}

func qualifyPrompt(in LeadInfo) string {
	website := in.CurrentWebsite
	if strings.TrimSpace(website) == "" {
		website = "None provided"
	}
	return fmt.Sprintf(`Qualify this lead:
- Business Type: %s
- Current Website: %s
- Biggest Challenge: %s
- Budget Range: %s
- Timeline: %s

Make them feel understood and create urgency without being pushy.`,
		in.BusinessType, website, in.BiggestChallenge, in.Budget, in.Timeline)
}

// Feedback is a client testimonial to answer.
type Feedback struct {
	ClientName  string `json:"clientName"`
	ProjectType string `json:"projectType"`
	Feedback    string `json:"feedback"`
}

type feedbackReply struct {
	Response string `json:"response"`
	FollowUp string `json:"followUp"`
}

// RespondToFeedback drafts a reply to client feedback. Failures yield a
// generic thank-you.
func (s *Service) RespondToFeedback(ctx context.Context, f Feedback) Result {
	prompt := fmt.Sprintf("Respond to this feedback:\nClient: %s\nProject: %s\nFeedback: %s", f.ClientName, f.ProjectType, f.Feedback)
	reply, err := s.ask(ctx, prompt, feedbackSystem, llm.WithMockContent(feedbackMock), llm.WithUnavailableContent(string(feedbackFallback)))
	if err != nil {
		s.log.Error("advisor: feedback response failed", zap.Error(err))
		return s.done(Result{Payload: feedbackFallback, Source: SourceFallback})
	}
	payload, err := s.decode(reply.Content, func() any { return new(feedbackReply) })
	if err != nil {
		return s.done(Result{Payload: feedbackFallback, Source: SourceFallback})
	}
	if reply.Degraded() {
		return s.done(Result{Payload: payload, Source: SourceUnavailable})
	}
	return s.done(Result{Payload: payload, Source: SourceModel})
}

// Turn is one earlier message of a chat.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// maxHistory bounds how many earlier turns are replayed to the model.
const maxHistory = 10

// Chat answers a visitor as the agency assistant. The payload is
// {"reply": text}; failures yield a short apology.
func (s *Service) Chat(ctx context.Context, message string, history []Turn) (Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Result{}, ErrMissingMessage
	}
	reply, err := s.ask(ctx, chatPrompt(message, history), chatSystem,
		llm.PlainText(), llm.WithMockContent(chatMock), llm.WithUnavailableContent(chatUnavailable))
	if err != nil {
		s.log.Error("advisor: chat failed", zap.Error(err))
		return s.done(Result{Payload: replyPayload(chatFallbackReply), Source: SourceFallback}), nil
	}
	src := SourceModel
	if reply.Degraded() {
		src = SourceUnavailable
	}
	return s.done(Result{Payload: replyPayload(reply.Content), Source: src}), nil
}

func chatPrompt(message string, history []Turn) string {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	var b strings.Builder
	for _, t := range history {
		role := strings.ToLower(strings.TrimSpace(t.Role))
		if role != "user" && role != "assistant" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("Conversation so far:\n")
		}
		fmt.Fprintf(&b, "%s: %s\n", role, strings.TrimSpace(t.Content))
	}
	if b.Len() == 0 {
		return message
	}
	fmt.Fprintf(&b, "\nuser: %s", message)
	return b.String()
}

func replyPayload(text string) json.RawMessage {
	b, _ := json.Marshal(struct {
		Reply string `json:"reply"`
	}{strings.TrimSpace(text)})
	return b
}

// Consult answers a career question in plain text. Errors are returned.
func (s *Service) Consult(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrMissingMessage
	}
	reply, err := s.ask(ctx, message, consultantSystem, llm.PlainText(), llm.WithMockContent(consultMock))
	if err != nil {
		return "", fmt.Errorf("advisor: consult: %w", err)
	}
	if reply.Degraded() {
		return "", ErrUnavailable
	}
	return strings.TrimSpace(reply.Content), nil
}

// LinkedInPost is generated social content.
type LinkedInPost struct {
	Hook          string   `json:"hook"`
	Body          string   `json:"body"`
	Hashtags      []string `json:"hashtags"`
	ViralityScore float64  `json:"estimated_virality_score"`
}

// GenerateContent writes a LinkedIn post about topic.
func (s *Service) GenerateContent(ctx context.Context, topic string) (json.RawMessage, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrMissingTopic
	}
	return s.structured(ctx, "content", topic, contentSystem, contentMock, func() any { return new(LinkedInPost) })
}

// Rewrite is a set of stronger versions of one resume bullet.
type Rewrite struct {
	Original string `json:"original"`
	Options  []struct {
		Option string `json:"option"`
		Text   string `json:"text"`
	} `json:"rewritten_options"`
	Explanation string `json:"explanation"`
}

// RewriteBullet rewrites a resume bullet. The payload gains a "rewritten"
// field holding the first option and its rationale.
func (s *Service) RewriteBullet(ctx context.Context, bullet string) (json.RawMessage, error) {
	bullet = strings.TrimSpace(bullet)
	if bullet == "" {
		return nil, ErrMissingBullet
	}
	payload, err := s.structured(ctx, "rewrite", bullet, rewriteSystem, rewriteMock, func() any { return new(Rewrite) })
	if err != nil {
		return nil, err
	}
	var rw Rewrite
	if err := json.Unmarshal(payload, &rw); err != nil {
		return nil, err
	}
	best := "No options provided"
	if len(rw.Options) > 0 && rw.Options[0].Text != "" {
		best = rw.Options[0].Text
	}
	return withFields(payload, map[string]string{
		"rewritten": best + "\n\nRationale: " + rw.Explanation,
	})
}

func (s *Service) structured(ctx context.Context, name, prompt, system, mock string, shape func() any) (json.RawMessage, error) {
	reply, err := s.ask(ctx, prompt, system, llm.WithMockContent(mock))
	if err != nil {
		return nil, fmt.Errorf("advisor: %s: %w", name, err)
	}
	if reply.Degraded() {
		return nil, ErrUnavailable
	}
	payload, err := s.decode(reply.Content, shape)
	if err != nil {
		return nil, fmt.Errorf("advisor: %s: %w", name, err)
	}
	return payload, nil
}

// withFields adds string fields to a JSON object payload.
func withFields(payload json.RawMessage, fields map[string]string) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("advisor: payload is not an object: %w", errors.Join(err, errNotObject))
	}
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		obj[k] = b
	}
	return json.Marshal(obj)
}
