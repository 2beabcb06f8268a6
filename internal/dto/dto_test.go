package dto

import (
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/manabi-api/internal/models"
)

func TestAnswerValueUnmarshal(t *testing.T) {
	var payload struct {
		Answers map[string]AnswerValue `json:"answers"`
	}
	raw := `{"answers":{"q1":"2","q2":[0,"3"],"q3":true,"q4":null,"q5":1}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.Equal(t, AnswerValue{"2"}, payload.Answers["q1"])
	assert.Equal(t, AnswerValue{"0", "3"}, payload.Answers["q2"])
	assert.Equal(t, AnswerValue{"true"}, payload.Answers["q3"])
	assert.Nil(t, payload.Answers["q4"])
	assert.Equal(t, AnswerValue{"1"}, payload.Answers["q5"])
}

func TestAnswerValueRejectsObjects(t *testing.T) {
	var value AnswerValue
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &value))
}

func TestNewMaterialResponseUsesCamelCase(t *testing.T) {
	resp := NewMaterialResponse(models.Material{ID: "m1", Title: "Fractions", HTMLContent: "<p>x</p>"})
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"htmlContent":"<p>x</p>"`)
	assert.Contains(t, string(raw), `"tags":[]`)
	assert.NotContains(t, string(raw), "html_content")
}

func TestMaterialRequestToModelTrimsTags(t *testing.T) {
	m := MaterialRequest{ID: " m1 ", Title: " Shapes ", Tags: []string{" math ", "", "geo"}}.ToModel()
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "Shapes", m.Title)
	assert.Equal(t, pq.StringArray{"math", "geo"}, m.Tags)
}

func TestStudentRequestNormalizesEmail(t *testing.T) {
	email := "  Hana@Example.COM "
	s := StudentRequest{Name: "Hana", Grade: "3-4", Email: &email}.ToModel()
	require.NotNil(t, s.Email)
	assert.Equal(t, "hana@example.com", *s.Email)

	blank := " "
	s = StudentRequest{Name: "Ken", Grade: "1-2", Email: &blank}.ToModel()
	assert.Nil(t, s.Email)
}

func TestSelectedIDsKeepsVisibleRowsOnly(t *testing.T) {
	rows := []models.VisibilityOverride{
		{MaterialID: "m1", Visible: true},
		{MaterialID: "m2", Visible: false},
		{MaterialID: "m3", Visible: true},
	}
	assert.Equal(t, []string{"m1", "m3"}, SelectedIDs(rows))
	assert.Equal(t, []string{}, SelectedIDs(nil))
}

func TestNewQuestionResponseHidesKeys(t *testing.T) {
	q := models.Question{
		ID:             "q1",
		Type:           models.QuestionMultiple,
		Text:           "Pick primes",
		Choices:        types.JSONText(`["2","4","5"]`),
		CorrectIndices: types.JSONText(`[0,2]`),
		Explanation:    sql.NullString{String: "2 and 5", Valid: true},
	}

	student, err := NewQuestionResponse(q, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4", "5"}, student.Choices)
	assert.Nil(t, student.CorrectIndices)
	assert.Nil(t, student.Explanation)

	teacher, err := NewQuestionResponse(q, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, teacher.CorrectIndices)
	require.NotNil(t, teacher.Explanation)
	assert.Equal(t, "2 and 5", *teacher.Explanation)
}

func TestNewUnreadResponseTotals(t *testing.T) {
	resp := NewUnreadResponse([]models.UnreadCount{{SenderEmail: "a@x.io", Count: 2}, {SenderEmail: "b@x.io", Count: 3}})
	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, 3, resp.BySender["b@x.io"])
}
