package quiz

// FeedbackKind is the user's reaction to a question.
type FeedbackKind string

const (
	// FeedbackLike marks the current question as liked.
	FeedbackLike FeedbackKind = "like"
	// FeedbackDislike marks the current question as disliked; a reason
	// prompt should follow.
	FeedbackDislike FeedbackKind = "dislike"
)

// Feedback is the per-question reaction. Liked is nil until the user reacts.
// Feedback never affects score or progression.
type Feedback struct {
	Liked  *bool
	Reason string
}

// QuestionResult records the outcome of one checked question, in order.
type QuestionResult struct {
	QuestionID string
	Selected   string
	Correct    bool
}

// Summary is the terminal report for a finished (or abandoned) attempt.
type Summary struct {
	Score   int
	Total   int
	Results []QuestionResult
}

// Attempt drives one quiz-taking session over an immutable question
// sequence. One attempt per instance; instances are not safe for concurrent
// use and are owned by a single UI context.
type Attempt struct {
	questions []Question

	cursor   int
	selected string
	answered bool
	correct  bool
	score    int
	feedback Feedback
	finished bool

	results []QuestionResult
}

// NewAttempt validates every question and returns an attempt positioned at
// the first one.
func NewAttempt(questions []Question) (*Attempt, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}

	copied := make([]Question, len(questions))
	copy(copied, questions)

	return &Attempt{
		questions: copied,
		results:   make([]QuestionResult, 0, len(copied)),
	}, nil
}

// Len returns the number of questions in the attempt.
func (a *Attempt) Len() int { return len(a.questions) }

// Cursor returns the current question index.
func (a *Attempt) Cursor() int { return a.cursor }

// Current returns the question under the cursor.
func (a *Attempt) Current() Question { return a.questions[a.cursor] }

// Selected returns the candidate answer for the current question, or ""
// when none is selected.
func (a *Attempt) Selected() string { return a.selected }

// Answered reports whether Check has run for the current question.
func (a *Attempt) Answered() bool { return a.answered }

// Correct reports the result of the last Check. Meaningless until Answered.
func (a *Attempt) Correct() bool { return a.correct }

// Score returns the running count of correct answers. Never decreases.
func (a *Attempt) Score() int { return a.score }

// Finished reports whether the terminal Continue has happened.
func (a *Attempt) Finished() bool { return a.finished }

// Feedback returns the reaction recorded for the current question.
func (a *Attempt) Feedback() Feedback { return a.feedback }

// NeedsFeedbackReason reports whether a dislike has been recorded and the
// reason prompt should be shown.
func (a *Attempt) NeedsFeedbackReason() bool {
	return a.feedback.Liked != nil && !*a.feedback.Liked
}

// SelectOption sets the candidate answer. No-op once the current question
// has been checked.
func (a *Attempt) SelectOption(option string) {
	if a.answered {
		return
	}
	a.selected = option
}

// Check grades the current selection against the correct answer. No-op when
// nothing is selected or the question is already checked, so duplicate
// dispatch can never award more than one point per question.
func (a *Attempt) Check() {
	if a.answered || a.selected == "" {
		return
	}

	a.correct = a.selected == a.questions[a.cursor].CorrectAnswer
	a.answered = true
	if a.correct {
		a.score++
	}
	a.results = append(a.results, QuestionResult{
		QuestionID: a.questions[a.cursor].ID,
		Selected:   a.selected,
		Correct:    a.correct,
	})
}

// Continue advances to the next question, resetting selection, answer state,
// and feedback. No-op (returns false) until the current question is checked.
// On the last question it returns true and leaves the cursor unchanged; the
// caller owns terminal navigation.
func (a *Attempt) Continue() bool {
	if !a.answered {
		return false
	}
	if a.cursor == len(a.questions)-1 {
		a.finished = true
		return true
	}

	a.cursor++
	a.selected = ""
	a.answered = false
	a.correct = false
	a.feedback = Feedback{}
	return false
}

// SetFeedback records a like or dislike for the current question.
func (a *Attempt) SetFeedback(kind FeedbackKind) {
	liked := kind == FeedbackLike
	a.feedback.Liked = &liked
	if liked {
		a.feedback.Reason = ""
	}
}

// SetFeedbackReason records the free-form reason code after a dislike.
// No-op unless a dislike is pending.
func (a *Attempt) SetFeedbackReason(reason string) {
	if !a.NeedsFeedbackReason() {
		return
	}
	a.feedback.Reason = reason
}

// Summary returns the per-question results captured so far.
func (a *Attempt) Summary() Summary {
	results := make([]QuestionResult, len(a.results))
	copy(results, a.results)
	return Summary{
		Score:   a.score,
		Total:   len(a.questions),
		Results: results,
	}
}
