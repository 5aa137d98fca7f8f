package service

import (
	"context"
	"math"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/hackbridge/hackbridge/internal/models"
	"github.com/hackbridge/hackbridge/internal/repository"
)

// QuizResult is the outcome of a finished quiz.
type QuizResult struct {
	Title string `json:"title"`
	Score int    `json:"score"`
	Total int    `json:"total"`
}

// QuizService turns quiz results into skill levels.
type QuizService struct {
	users UserStore
	log   *zap.Logger
}

func NewQuizService(users UserStore, log *zap.Logger) *QuizService {
	return &QuizService{users: users, log: log}
}

// SkillName is the skill a quiz title trains: its first word.
func SkillName(title string) string {
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Improvement maps a score percentage to a 0..10 gain.
func Improvement(score, total int) int {
	pct := float64(score) / float64(total) * 100
	return min(int(math.Ceil(pct/10)), models.MaxSkillLevel)
}

// ApplySkill returns skills updated with a quiz result for skill name.
// The first skill whose name contains name, ignoring case, is raised by a
// third of the improvement; otherwise a new skill starts at half of it.
func ApplySkill(skills []models.Skill, name string, improvement int) []models.Skill {
	out := append([]models.Skill{}, skills...)
	needle := strings.ToLower(name)
	for i := range out {
		if strings.Contains(strings.ToLower(out[i].Name), needle) {
			out[i].Level = models.ClampSkillLevel(out[i].Level + ceilDiv(improvement, 3))
			return out
		}
	}
	return append(out, models.Skill{Name: name, Level: models.ClampSkillLevel(ceilDiv(improvement, 2))})
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// ApplyResult updates the skills of a hacker. Other roles are left unchanged
// and get ErrForbidden.
func (s *QuizService) ApplyResult(ctx context.Context, userID string, res QuizResult) (*models.User, error) {
	if res.Total <= 0 || res.Score < 0 || res.Score > res.Total {
		return nil, errors.Wrapf(ErrInvalidInput, "score %d of %d", res.Score, res.Total)
	}
	name := SkillName(res.Title)
	if name == "" {
		return nil, errors.Wrap(ErrInvalidInput, "quiz title is required")
	}
	improvement := Improvement(res.Score, res.Total)

	u, err := s.users.Modify(ctx, userID, func(u *models.User) error {
		if u.Role != models.RoleHacker {
			return ErrForbidden
		}
		u.Skills = ApplySkill(u.Skills, name, improvement)
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("quiz result applied",
		zap.String("user_id", userID),
		zap.String("skill", name),
		zap.Int("improvement", improvement),
	)
	return u, nil
}
