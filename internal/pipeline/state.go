// Package pipeline defines the two content graphs: the creation pipeline
// that researches, generates, ranks, and publishes posts with a human
// approval gate, and the learning pipeline that collects metrics and folds
// them back into the knowledge base and strategy.
package pipeline

import (
	"fmt"
	"time"

	"github.com/kgarbacinski/AutoViralAI/internal/content"
)

// Decision values a human can return from the approval gate. Anything else
// is treated as a rejection.
const (
	DecisionApprove = "approve"
	DecisionEdit    = "edit"
	DecisionReject  = "reject"
)

// HumanDecision is the reply to an approval request.
type HumanDecision struct {
	Decision string `json:"decision"`

	// EditedContent replaces the selected post's content on "edit".
	EditedContent string `json:"edited_content,omitempty"`

	// Feedback, when set on a rejection, triggers regeneration.
	Feedback string `json:"feedback,omitempty"`

	// UseAlternative picks a listed alternative instead of the top post.
	// 1-based into the alternatives shown with the approval request.
	UseAlternative *int `json:"use_alternative,omitempty"`

	// PublishAt defers the decision until the given time. Handled by the
	// orchestrator; the graph itself never sees a future PublishAt.
	PublishAt *time.Time `json:"publish_at,omitempty"`
}

// Normalized returns the decision with an unrecognized value coerced to
// reject, so malformed input can never publish a post.
func (d HumanDecision) Normalized() HumanDecision {
	switch d.Decision {
	case DecisionApprove, DecisionEdit, DecisionReject:
	default:
		d.Decision = DecisionReject
		d.Feedback = ""
	}
	return d
}

// CreationState is the full state of one creation pipeline execution.
type CreationState struct {
	CurrentFollowerCount int  `json:"current_follower_count"`
	TargetFollowerCount  int  `json:"target_follower_count"`
	GoalReached          bool `json:"goal_reached"`

	ViralPosts        []content.ViralPost      `json:"viral_posts,omitempty"`
	ExtractedPatterns []content.ContentPattern `json:"extracted_patterns,omitempty"`

	GeneratedVariants []content.PostVariant `json:"generated_variants,omitempty"`
	RankedPosts       []content.RankedPost  `json:"ranked_posts,omitempty"`
	SelectedPost      *content.RankedPost   `json:"selected_post,omitempty"`

	HumanDecision      string `json:"human_decision,omitempty"`
	HumanEditedContent string `json:"human_edited_content,omitempty"`
	HumanFeedback      string `json:"human_feedback,omitempty"`

	PublishedPost *content.PublishedPost `json:"published_post,omitempty"`

	CycleNumber int `json:"cycle_number"`

	// RegenerateCount bounds the reject-with-feedback loop.
	RegenerateCount int `json:"regenerate_count"`

	// Errors accumulates non-fatal node problems; never truncated.
	Errors []string `json:"errors,omitempty"`
}

func (s CreationState) withError(node, format string, args ...any) CreationState {
	s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", node, fmt.Sprintf(format, args...)))
	return s
}

// LearningState is the full state of one learning pipeline execution.
type LearningState struct {
	PostsToCheck     []content.PublishedPost `json:"posts_to_check,omitempty"`
	CollectedMetrics []content.PostMetrics   `json:"collected_metrics,omitempty"`

	PerformanceAnalysis *content.PerformanceAnalysis `json:"performance_analysis,omitempty"`
	PatternUpdates      []content.PatternPerformance `json:"pattern_updates,omitempty"`

	NewStrategy *content.ContentStrategy `json:"new_strategy,omitempty"`

	CycleNumber int      `json:"cycle_number"`
	Errors      []string `json:"errors,omitempty"`
}

func (s LearningState) withError(node, format string, args ...any) LearningState {
	s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", node, fmt.Sprintf(format, args...)))
	return s
}

// ApprovalPayload is what the approval front-end shows the human.
type ApprovalPayload struct {
	SelectedPost  content.RankedPost   `json:"selected_post"`
	Alternatives  []content.RankedPost `json:"alternatives"`
	CycleNumber   int                  `json:"cycle_number"`
	FollowerCount int                  `json:"follower_count"`
}
