package overrides

import (
	"testing"

	"github.com/spboyer/checkerd/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	data := map[string]any{"foo": "bar", "count": int64(3)}

	assert.True(t, Matches(map[string]any{"foo": "bar"}, data))
	assert.True(t, Matches(map[string]any{"count": 3}, data))
	assert.True(t, Matches(map[string]any{"count": 3.0, "foo": "bar"}, data))
	assert.True(t, Matches(nil, data))

	assert.False(t, Matches(map[string]any{"foo": "baz"}, data))
	assert.False(t, Matches(map[string]any{"missing": "x"}, data))
}

func TestIsRelevant(t *testing.T) {
	failure := models.NewFailure("Oh no!").WithData(map[string]any{"foo": "bar"})

	tests := []struct {
		name      string
		overrides []models.Override
		want      bool
	}{
		{name: "no overrides", want: true},
		{
			name:      "checker override does not match",
			overrides: []models.Override{{Checker: "basic_checker", Data: map[string]any{"foo": "baz"}}},
			want:      true,
		},
		{
			name:      "checker override matches",
			overrides: []models.Override{{Checker: "basic_checker", Data: map[string]any{"foo": "bar"}}},
			want:      false,
		},
		{
			name:      "universal override matches",
			overrides: []models.Override{{AllCheckers: true, Data: map[string]any{"foo": "bar"}}},
			want:      false,
		},
		{
			name:      "override for another checker is ignored",
			overrides: []models.Override{{Checker: "other", Data: map[string]any{"foo": "bar"}}},
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRelevant(failure, "basic_checker", tt.overrides))
		})
	}
}

func TestIsRelevant_NoDataAlwaysKept(t *testing.T) {
	list := []models.Override{{AllCheckers: true, Data: map[string]any{}}}
	assert.True(t, IsRelevant(models.NewFailure("plain"), "any", list))
}

func TestFilter(t *testing.T) {
	failures := []models.CheckerFailure{
		models.NewFailure("a").WithData(map[string]any{"id": 1}),
		models.NewFailure("b").WithData(map[string]any{"id": 2}),
		models.NewFailure("c"),
	}
	list := []models.Override{{Checker: "x", Data: map[string]any{"id": 1}}}

	got := Filter(failures, "x", list)
	assert.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Text)
	assert.Equal(t, "c", got[1].Text)

	assert.Len(t, Filter(failures, "x", nil), 3)
}
