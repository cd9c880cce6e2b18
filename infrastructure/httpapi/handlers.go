package httpapi

import (
	"cmp"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ahrav/go-ballot/internal/application"
	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ranking"
)

// RespondentCookie carries the respondent identity between requests.
const RespondentCookie = "ballot_respondent"

// respondentCookieMaxAge keeps the identity long enough to block a repeat
// visit for the lifetime of a survey.
const respondentCookieMaxAge = int(365 * 24 * time.Hour / time.Second)

type handlers struct {
	survey       *application.SurveyService
	results      *application.AggregationService
	catalog      domain.Catalog
	logger       *slog.Logger
	secureCookie bool
}

// pairView is the pair a respondent judges next.
type pairView struct {
	A domain.Item `json:"a"`
	B domain.Item `json:"b"`
}

// rankedItem is one line of a finalized ranking.
type rankedItem struct {
	Item int    `json:"item"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// stepResponse reports the survey state after start, current, or submit.
type stepResponse struct {
	RespondentID string           `json:"respondent_id"`
	Complete     bool             `json:"complete"`
	Pair         *pairView        `json:"pair,omitempty"`
	Progress     ranking.Progress `json:"progress"`
	Ranking      []rankedItem     `json:"ranking,omitempty"`
}

// judgmentRequest is the body of POST /v1/survey.
type judgmentRequest struct {
	A      *int   `json:"a" binding:"required"`
	B      *int   `json:"b" binding:"required"`
	Result string `json:"result" binding:"required"`
}

// statView is one item of the summary.
type statView struct {
	Item       int      `json:"item"`
	Name       string   `json:"name"`
	SumOfRanks int      `json:"sum_of_ranks"`
	VoteCount  int      `json:"vote_count"`
	Average    *float64 `json:"average"`
	Median     *float64 `json:"median,omitempty"`
	// Display is the average with two decimals, or "no data".
	Display string `json:"display"`
}

type summaryResponse struct {
	Method      string     `json:"method"`
	Respondents int        `json:"respondents"`
	ComputedAt  time.Time  `json:"computed_at"`
	Items       []statView `json:"items"`
}

type detailRow struct {
	RespondentID string       `json:"respondent_id"`
	CreatedAt    time.Time    `json:"created_at"`
	FinalizedAt  *time.Time   `json:"finalized_at,omitempty"`
	Ranking      []rankedItem `json:"ranking"`
}

func (h *handlers) item(i int) domain.Item {
	return domain.Item{Index: i, Name: h.catalog.Name(i)}
}

func (h *handlers) stepView(step application.Step) stepResponse {
	resp := stepResponse{
		RespondentID: step.RespondentID,
		Complete:     step.Complete(),
		Progress:     step.Progress,
	}
	if step.Pair != nil {
		resp.Pair = &pairView{A: h.item(step.Pair.A), B: h.item(step.Pair.B)}
	}
	if step.Complete() {
		resp.Ranking = h.rankingView(step.Ranking)
	}
	return resp
}

// rankingView lists a ranking best first, ties in item order.
func (h *handlers) rankingView(ranks domain.RankAssignment) []rankedItem {
	out := make([]rankedItem, 0, len(ranks))
	for item, rank := range ranks {
		out = append(out, rankedItem{Item: item, Name: h.catalog.Name(item), Rank: rank})
	}
	slices.SortFunc(out, func(x, y rankedItem) int {
		return cmp.Or(cmp.Compare(x.Rank, y.Rank), cmp.Compare(x.Item, y.Item))
	})
	return out
}

func (h *handlers) listItems(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.catalog.Items()})
}

func (h *handlers) startSurvey(c *gin.Context) {
	existing, _ := c.Cookie(RespondentCookie)

	step, err := h.survey.Start(c.Request.Context(), application.StartRequest{
		ExistingID: existing,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RespondentCookie, step.RespondentID, respondentCookieMaxAge, "/", "", h.secureCookie, true)
	c.JSON(http.StatusCreated, h.stepView(step))
}

func (h *handlers) currentPair(c *gin.Context) {
	id, _ := c.Cookie(RespondentCookie)

	step, err := h.survey.Current(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.stepView(step))
}

func (h *handlers) submitJudgment(c *gin.Context) {
	id, _ := c.Cookie(RespondentCookie)

	var req judgmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, domain.NewInputError("body", "", err))
		return
	}

	step, err := h.survey.Submit(c.Request.Context(), id, application.SubmitRequest{
		A:      *req.A,
		B:      *req.B,
		Result: req.Result,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.stepView(step))
}

func (h *handlers) summary(c *gin.Context) {
	summary, err := h.results.Summary(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	resp := summaryResponse{
		Method:      summary.Method,
		Respondents: summary.Respondents,
		ComputedAt:  summary.ComputedAt,
		Items:       make([]statView, len(summary.Stats)),
	}
	for i, stat := range summary.Stats {
		resp.Items[i] = statView{
			Item:       stat.Item,
			Name:       stat.Name,
			SumOfRanks: stat.SumOfRanks,
			VoteCount:  stat.VoteCount,
			Average:    stat.Average,
			Median:     stat.Median,
			Display:    FormatAverage(stat.Average),
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) detail(c *gin.Context) {
	rows, err := h.results.Detail(c.Request.Context(), bearerToken(c.GetHeader("Authorization")))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	resp := make([]detailRow, len(rows))
	for i, row := range rows {
		resp[i] = detailRow{
			RespondentID: row.RespondentID,
			CreatedAt:    row.CreatedAt,
			FinalizedAt:  row.FinalizedAt,
			Ranking:      h.rankingView(row.Ranking),
		}
	}
	c.JSON(http.StatusOK, gin.H{"respondents": resp})
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// FormatAverage renders an average with two decimals, or "no data".
func FormatAverage(avg *float64) string {
	if avg == nil {
		return "no data"
	}
	return strconv.FormatFloat(*avg, 'f', 2, 64)
}

