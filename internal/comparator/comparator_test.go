package comparator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bosync/internal/ir"
)

type testSubject struct {
	text   map[string]ir.LangList
	status string
	parent ir.ObjectID
	start  time.Time
}

func (s testSubject) Identifier() string { return "test/subject" }
func (s testSubject) Text(field string) ir.LangList { return s.text[field] }
func (s testSubject) Status() string { return s.status }
func (s testSubject) ParentID() ir.ObjectID { return s.parent }
func (s testSubject) StartTime() time.Time { return s.start }

func makeTestSubject() testSubject {
	return testSubject{
		text: map[string]ir.LangList{
			"name": {{Lang: "de", Text: "Basketball"}, {Lang: "en", Text: "Basketball"}},
		},
		parent: "1.20.0",
	}
}

func always(ok bool, err error) Comparator {
	return func(Subject, ir.Fields) (bool, error) { return ok, err }
}

func TestAllAndAny(t *testing.T) {
	s := makeTestSubject()
	boom := errors.New("boom")

	tests := []struct {
		name    string
		cmp     Comparator
		want    bool
		wantErr bool
	}{
		{"all true", All(always(true, nil), always(true, nil)), true, false},
		{"all one false", All(always(true, nil), always(false, nil)), false, false},
		{"all empty", All(), true, false},
		{"all error", All(always(true, nil), always(false, boom)), false, true},
		{"any one true", Any(always(false, nil), always(true, nil)), true, false},
		{"any none", Any(always(false, nil), always(false, nil)), false, false},
		{"any error first", Any(always(false, boom), always(true, nil)), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.cmp(s, ir.Fields{})
			assert.Equal(t, tt.want, ok)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequiredKeys(t *testing.T) {
	s := makeTestSubject()
	cmp := RequiredKeys([]string{"sport_id", "new_name"}, []string{"name"})

	ok, err := cmp(s, ir.Fields{"name": "x"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cmp(s, ir.Fields{"new_name": "x"})
	require.NoError(t, err)
	assert.True(t, ok)

	for _, payload := range []ir.Fields{{}, {"description": "x"}, nil} {
		ok, err = cmp(s, payload)
		assert.False(t, ok)
		require.Error(t, err, "unrecognized shapes fail hard")
		assert.True(t, IsShapeError(err))
	}
}

func TestStatusEqual(t *testing.T) {
	cmp := StatusEqual()

	noOpinion := makeTestSubject()
	ok, _ := cmp(noOpinion, ir.Fields{"status": "frozen"})
	assert.True(t, ok)

	s := makeTestSubject()
	s.status = "upcoming"

	ok, _ = cmp(s, ir.Fields{"status": "upcoming"})
	assert.True(t, ok)
	ok, _ = cmp(s, ir.Fields{"status": "frozen"})
	assert.False(t, ok)
	ok, _ = cmp(s, ir.Fields{})
	assert.False(t, ok)
}

func TestParentEqual(t *testing.T) {
	s := makeTestSubject()
	cmp := ParentEqual("sport_id")

	tests := []struct {
		name   string
		fields ir.Fields
		want   bool
	}{
		{"same parent", ir.Fields{"sport_id": "1.20.0"}, true},
		{"update shape", ir.Fields{"new_sport_id": ir.ObjectID("1.20.0")}, true},
		{"other parent", ir.Fields{"sport_id": "1.20.1"}, false},
		{"provisional", ir.Fields{"sport_id": "0.0.3"}, true},
		{"absent", ir.Fields{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := cmp(s, tt.fields)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestStartTimeEqual(t *testing.T) {
	s := makeTestSubject()
	s.start = time.Date(2022, 10, 16, 0, 0, 0, 0, time.UTC)
	cmp := StartTimeEqual()

	ok, err := cmp(s, ir.Fields{"start_time": "2022-10-16T00:00:00"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cmp(s, ir.Fields{"new_start_time": "2022-10-16T01:00:00"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = cmp(s, ir.Fields{})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = cmp(s, ir.Fields{"start_time": "yesterday"})
	assert.Error(t, err)
}
