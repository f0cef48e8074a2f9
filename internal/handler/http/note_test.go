package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/service"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
	"github.com/harunzafer/fastsvelte/pkg/pagination"
)

func TestCreateNote(t *testing.T) {
	s := newTestServer(t)
	in := service.CreateNoteInput{Title: "Groceries", Content: "milk, eggs"}
	s.notes.On("Create", mock.Anything, memberActor, in).
		Return(&domain.Note{ID: 5, UserID: memberActor.UserID(), Title: "Groceries", Content: "milk, eggs"}, nil)

	rr := s.do(http.MethodPost, "/notes", in, "tok-member")

	require.Equal(t, http.StatusCreated, rr.Code)
	var got domain.Note
	decodeData(t, rr, &got)
	assert.Equal(t, int64(5), got.ID)
	assert.Equal(t, "Groceries", got.Title)
}

func TestCreateNote_BlankTitle(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/notes", map[string]any{"title": "   ", "content": "x"}, "tok-member")

	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "title")
}

func TestCreateNote_TitleTooLong(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/notes", map[string]any{"title": strings.Repeat("é", 201)}, "tok-member")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateNote_QuotaExceeded(t *testing.T) {
	s := newTestServer(t)
	s.notes.On("Create", mock.Anything, memberActor, mock.AnythingOfType("service.CreateNoteInput")).
		Return(nil, domain.QuotaExceeded(domain.FeatureMaxNotes, 10))

	rr := s.do(http.MethodPost, "/notes", map[string]any{"title": "eleventh"}, "tok-member")

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "QUOTA_EXCEEDED", errorCode(t, rr))
}

func TestCreateNote_ReadonlyDenied(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/notes", map[string]any{"title": "t"}, "tok-readonly")

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestListNotes(t *testing.T) {
	s := newTestServer(t)
	p := pagination.Params{Page: 1, PerPage: 20}
	s.notes.On("List", mock.Anything, memberActor, p).
		Return(pagination.NewPage([]domain.Note{{ID: 1}, {ID: 2}}, 2, p), nil)

	rr := s.do(http.MethodGet, "/notes", nil, "tok-member")

	require.Equal(t, http.StatusOK, rr.Code)
	var got pagination.Page[domain.Note]
	decodeData(t, rr, &got)
	assert.Len(t, got.Items, 2)
	assert.False(t, got.HasNext)
}

func TestGetNote(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s := newTestServer(t)
		s.notes.On("Get", mock.Anything, memberActor, int64(8)).Return(&domain.Note{ID: 8, Title: "t"}, nil)

		rr := s.do(http.MethodGet, "/notes/8", nil, "tok-member")

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("owned by someone else", func(t *testing.T) {
		s := newTestServer(t)
		s.notes.On("Get", mock.Anything, memberActor, int64(9)).Return(nil, apperrors.NotFound("note", "9"))

		rr := s.do(http.MethodGet, "/notes/9", nil, "tok-member")

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "RESOURCE_NOT_FOUND", errorCode(t, rr))
	})

	t.Run("bad id", func(t *testing.T) {
		s := newTestServer(t)

		rr := s.do(http.MethodGet, "/notes/0", nil, "tok-member")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUpdateNote(t *testing.T) {
	s := newTestServer(t)
	in := service.UpdateNoteInput{Content: strPtr("updated")}
	s.notes.On("Update", mock.Anything, memberActor, int64(3), in).
		Return(&domain.Note{ID: 3, Title: "t", Content: "updated"}, nil)

	rr := s.do(http.MethodPut, "/notes/3", map[string]any{"content": "updated"}, "tok-member")

	require.Equal(t, http.StatusOK, rr.Code)
	var got domain.Note
	decodeData(t, rr, &got)
	assert.Equal(t, "updated", got.Content)
}

func TestDeleteNote(t *testing.T) {
	s := newTestServer(t)
	s.notes.On("Delete", mock.Anything, memberActor, int64(3)).Return(nil)

	rr := s.do(http.MethodDelete, "/notes/3", nil, "tok-member")

	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestSummarizeNote(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestServer(t)
		s.notes.On("Summarize", mock.Anything, memberActor, int64(4)).
			Return(&domain.Note{ID: 4, Summary: strPtr("short")}, nil)

		rr := s.do(http.MethodPost, "/notes/4/summarize", nil, "tok-member")

		require.Equal(t, http.StatusOK, rr.Code)
		var got domain.Note
		decodeData(t, rr, &got)
		require.NotNil(t, got.Summary)
		assert.Equal(t, "short", *got.Summary)
	})

	t.Run("ai disabled on plan", func(t *testing.T) {
		s := newTestServer(t)
		s.notes.On("Summarize", mock.Anything, memberActor, int64(4)).Return(nil, domain.AccessDenied())

		rr := s.do(http.MethodPost, "/notes/4/summarize", nil, "tok-member")

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("provider unavailable", func(t *testing.T) {
		s := newTestServer(t)
		s.notes.On("Summarize", mock.Anything, memberActor, int64(4)).
			Return(nil, apperrors.Unavailable("openai", assert.AnError))

		rr := s.do(http.MethodPost, "/notes/4/summarize", nil, "tok-member")

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}
