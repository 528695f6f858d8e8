package fakeapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

// Material is a seeded chapter
type Material struct {
	ID       int    `json:"id"`
	Subject  string `json:"subject"`
	Chapter  string `json:"chapter"`
	Summary  string `json:"summary"`
	Formulas string `json:"formulas"`
	Examples string `json:"examples"`
}

type answerKey struct {
	Correct     int
	Explanation string
	Concepts    []string
	Category    string
	Subject     string
}

var (
	utbkSubjects    = []string{"TPS_PU", "TPS_PPU", "TPS_PBM", "TPS_PK", "LITBIN", "LITBING", "PM"}
	saintekSubjects = []string{"MAT_WAJIB", "MAT_LANJUT", "FISIKA", "KIMIA", "BIOLOGI"}
	soshumSubjects  = []string{"EKONOMI", "GEOGRAFI", "SEJARAH", "SOSIOLOGI"}
)

func defaultMaterials() []Material {
	return []Material{
		{
			ID: 1, Subject: "MATEMATIKA", Chapter: "Persamaan Kuadrat",
			Summary:  "Bentuk umum ax^2 + bx + c = 0.",
			Formulas: "x = (-b ± √(b^2 - 4ac)) / 2a",
			Examples: "Tentukan akar x^2 - 5x + 6 = 0.",
		},
		{
			ID: 2, Subject: "MATEMATIKA", Chapter: "Barisan Aritmetika",
			Summary:  "Selisih antar suku tetap.",
			Formulas: "Un = a + (n-1)b",
			Examples: "Suku ke-10 dari 2, 5, 8, ...",
		},
		{
			ID: 3, Subject: "FISIKA", Chapter: "Gerak Lurus",
			Summary:  "GLB dan GLBB.",
			Formulas: "v = v0 + at",
		},
	}
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (b *Backend) authResponse(c *gin.Context, u *user) {
	token, err := b.IssueToken(u.Username)
	if err != nil {
		abortDetail(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"user":    u.Username,
		"role":    u.Role,
		"is_paid": u.IsPaid,
	})
}

func (b *Backend) register(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 3 || len(req.Password) < 6 {
		abortDetail(c, http.StatusUnprocessableEntity, []gin.H{
			{"loc": []string{"body", "password"}, "msg": "String should have at least 6 characters"},
		})
		return
	}

	b.mu.Lock()
	if _, exists := b.users[username]; exists {
		b.mu.Unlock()
		abortDetail(c, http.StatusBadRequest, "Username already used")
		return
	}
	u := &user{Username: username, Password: req.Password, Role: "student"}
	b.users[username] = u
	b.mu.Unlock()

	b.authResponse(c, u)
}

func (b *Backend) login(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	b.mu.Lock()
	u, ok := b.users[username]
	b.mu.Unlock()
	if !ok || u.Password != req.Password {
		abortDetail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	b.authResponse(c, u)
}

func (b *Backend) me(c *gin.Context) {
	u := currentUser(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"user":          u.Username,
		"role":          u.Role,
		"is_paid":       u.IsPaid,
		"attempts_used": u.AttemptsUsed,
		"free_limit":    b.freeLimit,
	})
}

func (b *Backend) listMaterials(c *gin.Context) {
	subject := strings.ToUpper(strings.TrimSpace(c.Query("subject")))
	if subject == "" {
		abortDetail(c, http.StatusUnprocessableEntity, "subject is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := []gin.H{}
	for _, m := range b.materials {
		if m.Subject == subject {
			out = append(out, gin.H{"id": m.ID, "subject": m.Subject, "chapter": m.Chapter})
		}
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) findMaterial(id int) (Material, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.materials {
		if m.ID == id {
			return m, true
		}
	}
	return Material{}, false
}

func (b *Backend) getMaterial(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "id must be an integer")
		return
	}

	m, ok := b.findMaterial(id)
	if !ok {
		abortDetail(c, http.StatusNotFound, "Material not found")
		return
	}
	c.JSON(http.StatusOK, m)
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func (b *Backend) tutorChat(c *gin.Context) {
	var req struct {
		Mode      string `json:"mode"`
		ChapterID int    `json:"chapter_id"`
		Subject   string `json:"subject"`
		Question  string `json:"question"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	m, ok := b.findMaterial(req.ChapterID)
	if !ok {
		abortDetail(c, http.StatusNotFound, "Chapter not found")
		return
	}

	q := strings.ToLower(req.Question)
	var answer string
	switch {
	case containsAny(q, "rumus", "formula"):
		answer = m.Formulas
	case containsAny(q, "contoh", "example"):
		answer = m.Examples
	default:
		answer = m.Summary
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (b *Backend) meta(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"UTBK": utbkSubjects,
		"TKA":  gin.H{"SAINTEK": saintekSubjects, "SOSHUM": soshumSubjects},
	})
}

func allowedSubjects(exam, track string) []string {
	if exam == "UTBK" {
		return utbkSubjects
	}
	if track == "SOSHUM" {
		return soshumSubjects
	}
	return saintekSubjects
}

func (b *Backend) generateSet(c *gin.Context) {
	req := struct {
		Exam    string  `json:"exam"`
		Track   string  `json:"track"`
		Subject string  `json:"subject"`
		Level   float64 `json:"level"`
		N       int     `json:"n"`
	}{Exam: "UTBK", Track: "SAINTEK", Subject: "MIX", Level: 1.5, N: 10}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.N < 10 || req.N > 30 {
		abortDetail(c, http.StatusUnprocessableEntity, []gin.H{
			{"loc": []string{"body", "n"}, "msg": "Input should be between 10 and 30"},
		})
		return
	}

	u := currentUser(c)
	b.mu.Lock()
	exhausted := u.Role != "admin" && !u.IsPaid && u.AttemptsUsed >= b.freeLimit
	limit := b.freeLimit
	b.mu.Unlock()
	if exhausted {
		abortDetail(c, http.StatusPaymentRequired, fmt.Sprintf("Free limit reached (%dx).", limit))
		return
	}

	exam := strings.ToUpper(req.Exam)
	track := strings.ToUpper(req.Track)
	subjects := allowedSubjects(exam, track)
	if req.Subject != "MIX" && !contains(subjects, req.Subject) {
		abortDetail(c, http.StatusBadRequest, "Subject not allowed for this exam/track")
		return
	}

	questions := make([]gin.H, 0, req.N)
	b.mu.Lock()
	for i := 0; i < req.N; i++ {
		subject := req.Subject
		if subject == "MIX" {
			subject = subjects[i%len(subjects)]
		}
		token := ulid.Make().String()
		b.keys[token] = answerKey{
			Correct:     i % 4,
			Explanation: fmt.Sprintf("Langkah 1\nLangkah 2 untuk soal %d", i+1),
			Concepts:    []string{"konsep-" + strings.ToLower(subject)},
			Category:    "Kategori " + subject,
			Subject:     subject,
		}
		questions = append(questions, gin.H{
			"subject":  subject,
			"kategori": "Kategori " + subject,
			"teks":     fmt.Sprintf("Soal %d", i+1),
			"opsi":     []string{"opsi A", "opsi B", "opsi C", "opsi D"},
			"token":    token,
		})
	}
	u.AttemptsUsed++
	b.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"exam": exam, "track": track, "n": req.N, "questions": questions})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (b *Backend) lookupKey(token string) (answerKey, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k, ok := b.keys[token]
	return k, ok
}

func (b *Backend) checkSet(c *gin.Context) {
	var req struct {
		Answers []struct {
			Token  string `json:"token"`
			Answer int    `json:"answer"`
		} `json:"answers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	score := 0
	results := make([]gin.H, 0, len(req.Answers))
	for _, item := range req.Answers {
		key, ok := b.lookupKey(item.Token)
		if !ok {
			abortDetail(c, http.StatusBadRequest, "Invalid token")
			return
		}
		correct := item.Answer == key.Correct
		if correct {
			score++
		}
		results = append(results, gin.H{
			"correct":       correct,
			"correct_index": key.Correct,
			"pembahasan":    key.Explanation,
			"konsep":        key.Concepts,
			"kategori":      key.Category,
			"subject":       key.Subject,
		})
	}

	c.JSON(http.StatusOK, gin.H{"score": score, "total": len(results), "results": results})
}

func (b *Backend) explain(c *gin.Context) {
	var req struct {
		Token    string `json:"token"`
		Question string `json:"question"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	key, ok := b.lookupKey(req.Token)
	if !ok {
		abortDetail(c, http.StatusBadRequest, "Invalid token")
		return
	}

	q := strings.ToLower(req.Question)
	var answer string
	switch {
	case containsAny(q, "kunci", "answer"):
		answer = fmt.Sprintf("Jawaban benar: opsi %s.", []string{"A", "B", "C", "D"}[key.Correct])
	case containsAny(q, "konsep", "concept"):
		answer = fmt.Sprintf("Kategori: %s (%s)\nKonsep: %s", key.Category, key.Subject, strings.Join(key.Concepts, ", "))
	default:
		answer = "Pembahasan:\n" + key.Explanation
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
