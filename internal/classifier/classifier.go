// Package classifier scores guestbook submissions for spam likelihood.
//
// Classification is pure: the same body and display name always produce the
// same Result. Rules are an ordered table so each heuristic can be tested and
// extended on its own.
//
// Import Path: travelguide.io/guestbook/internal/classifier
package classifier

import (
	"strings"
	"unicode/utf8"

	apperrors "travelguide.io/guestbook/internal/pkg/errors"
)

const (
	// DefaultThreshold is the score at or above which a submission is spam.
	DefaultThreshold = 50
	// DefaultMaxBodyLength is the hard bound on body length, in characters.
	DefaultMaxBodyLength = 10000

	maxScore = 100
)

// Result is the outcome of classifying one submission.
type Result struct {
	IsSpam  bool     `json:"is_spam"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Classifier applies an ordered rule table.
type Classifier struct {
	rules         []Rule
	threshold     int
	maxBodyLength int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithThreshold overrides the spam threshold.
func WithThreshold(threshold int) Option {
	return func(c *Classifier) {
		if threshold > 0 {
			c.threshold = threshold
		}
	}
}

// WithMaxBodyLength overrides the hard body bound enforced by ValidateInput.
func WithMaxBodyLength(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.maxBodyLength = n
		}
	}
}

// New creates a Classifier over rules, evaluated in order.
func New(rules []Rule, opts ...Option) *Classifier {
	c := &Classifier{
		rules:         append([]Rule(nil), rules...),
		threshold:     DefaultThreshold,
		maxBodyLength: DefaultMaxBodyLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewDefault creates a Classifier over DefaultRules.
func NewDefault(opts ...Option) *Classifier {
	return New(DefaultRules(), opts...)
}

// Threshold returns the configured spam threshold.
func (c *Classifier) Threshold() int {
	return c.threshold
}

// Classify scores body and displayName. Score is clamped to 100 and each
// reason appears once, in rule order.
func (c *Classifier) Classify(body, displayName string) Result {
	score := 0
	reasons := make([]string, 0, 4)
	seen := make(map[string]struct{}, 4)

	for _, rule := range c.rules {
		input := body
		if rule.Field == FieldDisplayName {
			input = displayName
		}
		hits := rule.Match(input)
		if hits <= 0 {
			continue
		}
		score += hits * rule.Weight
		if _, ok := seen[rule.Reason]; !ok {
			seen[rule.Reason] = struct{}{}
			reasons = append(reasons, rule.Reason)
		}
	}

	if score > maxScore {
		score = maxScore
	}
	return Result{
		IsSpam:  score >= c.threshold,
		Score:   score,
		Reasons: reasons,
	}
}

// ValidateInput rejects input the pipeline must not score or count against a
// rate limit.
func (c *Classifier) ValidateInput(body, displayName string) error {
	if !utf8.ValidString(body) {
		return apperrors.ErrClassifierInputInvalid("body", "body is not valid UTF-8")
	}
	if strings.TrimSpace(body) == "" {
		return apperrors.ErrClassifierInputInvalid("body", "body is required")
	}
	if utf8.RuneCountInString(body) > c.maxBodyLength {
		return apperrors.ErrClassifierInputInvalid("body", "body exceeds maximum length")
	}
	if !utf8.ValidString(displayName) {
		return apperrors.ErrClassifierInputInvalid("display_name", "display name is not valid UTF-8")
	}
	if strings.TrimSpace(displayName) == "" {
		return apperrors.ErrClassifierInputInvalid("display_name", "display name is required")
	}
	return nil
}
