package client

import "strings"

// AuthRequest represents the login and registration request body
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse represents the login and registration response
type AuthResponse struct {
	Token  string `json:"token"`
	User   string `json:"user"`
	Role   string `json:"role"`
	IsPaid bool   `json:"is_paid"`
}

// Me represents the current user and their quota
type Me struct {
	User         string `json:"user"`
	Role         string `json:"role"`
	IsPaid       bool   `json:"is_paid"`
	AttemptsUsed int    `json:"attempts_used"`
	FreeLimit    int    `json:"free_limit"`
}

// Remaining returns the number of free quiz generations left
func (m *Me) Remaining() int {
	return max(0, m.FreeLimit-m.AttemptsUsed)
}

// CanStartQuiz reports whether the user may generate another quiz
func (m *Me) CanStartQuiz() bool {
	return m.Remaining() > 0 || m.Role == "admin" || m.IsPaid
}

// MaterialSummary is one chapter in the materials list
type MaterialSummary struct {
	ID      int    `json:"id"`
	Subject string `json:"subject"`
	Chapter string `json:"chapter"`
}

// Material is the full study material of a chapter
type Material struct {
	ID       int    `json:"id"`
	Subject  string `json:"subject"`
	Chapter  string `json:"chapter"`
	Summary  string `json:"summary"`
	Formulas string `json:"formulas"`
	Examples string `json:"examples"`
}

// TutorChatRequest asks the tutor a question about a chapter
type TutorChatRequest struct {
	Mode      string `json:"mode"`
	ChapterID int    `json:"chapter_id"`
	Subject   string `json:"subject"`
	Question  string `json:"question"`
}

// Answer is a tutor reply
type Answer struct {
	Answer string `json:"answer"`
}

// Meta lists the subjects available per exam and track
type Meta struct {
	UTBK []string            `json:"UTBK"`
	TKA  map[string][]string `json:"TKA"`
}

// SubjectsFor returns the subjects of an exam/track combination.
// UTBK ignores the track.
func (m *Meta) SubjectsFor(exam, track string) []string {
	if strings.EqualFold(exam, "UTBK") {
		return m.UTBK
	}
	return m.TKA[strings.ToUpper(track)]
}

// MixSubject asks the backend for a mix of all allowed subjects
const MixSubject = "MIX"

// GenerateSetRequest represents the quiz generation request
type GenerateSetRequest struct {
	Exam    string  `json:"exam"`
	Track   string  `json:"track"`
	Subject string  `json:"subject"`
	Level   float64 `json:"level"`
	N       int     `json:"n"`
	Seed    *int    `json:"seed,omitempty"`
}

// Question is one generated multiple choice question. The token is an
// opaque, signed answer key understood only by the backend.
type Question struct {
	Subject  string   `json:"subject"`
	Category string   `json:"kategori"`
	Text     string   `json:"teks"`
	Options  []string `json:"opsi"`
	Token    string   `json:"token"`
}

// QuizSet is a generated quiz
type QuizSet struct {
	Exam      string     `json:"exam"`
	Track     string     `json:"track"`
	N         int        `json:"n"`
	Questions []Question `json:"questions"`
}

// AnswerItem is the chosen option for one question
type AnswerItem struct {
	Token  string `json:"token"`
	Answer int    `json:"answer"`
}

// CheckSetRequest submits the answers of a quiz
type CheckSetRequest struct {
	Answers []AnswerItem `json:"answers"`
}

// QuestionResult is the verdict for one answered question
type QuestionResult struct {
	Correct      bool     `json:"correct"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"pembahasan"`
	Concepts     []string `json:"konsep"`
	Category     string   `json:"kategori"`
	Subject      string   `json:"subject"`
}

// CheckResult is the score of a submitted quiz
type CheckResult struct {
	Score   int              `json:"score"`
	Total   int              `json:"total"`
	Results []QuestionResult `json:"results"`
}

// ExplainRequest asks the tutor about a generated question
type ExplainRequest struct {
	Token    string `json:"token"`
	Question string `json:"question"`
}

// OptionLetters label answer options in order
var OptionLetters = []string{"A", "B", "C", "D"}

// OptionLetter returns the letter of option i, or "?" when out of range
func OptionLetter(i int) string {
	if i < 0 || i >= len(OptionLetters) {
		return "?"
	}
	return OptionLetters[i]
}
