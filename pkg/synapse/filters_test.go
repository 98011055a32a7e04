package synapse

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notFoundError struct{ what string }

func (e *notFoundError) Error() string { return e.what + " not found" }

func respond(status int) ExceptionFilter {
	return ExceptionFilterFunc(func(error, *ExecutionContext) (*Response, error) {
		return NewResponse(status, nil), nil
	})
}

func TestSelectFilter(t *testing.T) {
	typed := Catch[*notFoundError](respond(http.StatusNotFound))
	httpOnly := Catch[*HttpError](respond(http.StatusTeapot))
	catchAll := respond(http.StatusServiceUnavailable)

	tests := []struct {
		name    string
		err     error
		filters []ExceptionFilter
		want    int // index into filters, -1 for none
	}{
		{"typed match", &notFoundError{"cat"}, []ExceptionFilter{typed, catchAll}, 0},
		{"wrapped typed match", fmt.Errorf("load: %w", &notFoundError{"cat"}), []ExceptionFilter{typed}, 0},
		{"skip non matching", errors.New("plain"), []ExceptionFilter{typed, httpOnly, catchAll}, 2},
		{"first match wins", &notFoundError{"cat"}, []ExceptionFilter{catchAll, typed}, 0},
		{"no match", errors.New("plain"), []ExceptionFilter{typed}, -1},
		{"nil filters skipped", errors.New("plain"), []ExceptionFilter{nil, catchAll}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectFilter(tt.err, tt.filters)
			if tt.want < 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			resp, err := got.Catch(tt.err, testEC())
			require.NoError(t, err)
			want, _ := tt.filters[tt.want].Catch(tt.err, testEC())
			assert.Equal(t, want.StatusCode, resp.StatusCode)
		})
	}
}

func TestCatch_AccumulatesTypes(t *testing.T) {
	f := Catch[*HttpError](Catch[*notFoundError](respond(http.StatusNotFound)))
	tf, ok := f.(TypedFilter)
	require.True(t, ok)
	assert.Len(t, tf.CatchTypes(), 2)

	assert.True(t, FilterMatches(f, ErrConflict("x")))
	assert.True(t, FilterMatches(f, &notFoundError{}))
	assert.False(t, FilterMatches(f, errors.New("x")))
}

func TestCatchFunc_ReceivesTypedError(t *testing.T) {
	f := CatchFunc[*notFoundError](func(err *notFoundError, _ *ExecutionContext) (*Response, error) {
		return ErrorResponse(ErrNotFound(err.Error())), nil
	})

	resp := handleException(fmt.Errorf("wrapped: %w", &notFoundError{"dog"}), testEC(), []ExceptionFilter{f})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "dog not found", resp.Body.(*HttpError).Message)
}

func TestHandleException_Fallbacks(t *testing.T) {
	resp := handleException(errors.New("secret detail"), testEC(), nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", resp.Body.(*HttpError).Message)

	resp = handleException(ErrUnprocessableEntity("bad"), testEC(), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	panicking := ExceptionFilterFunc(func(error, *ExecutionContext) (*Response, error) {
		panic("filter exploded")
	})
	resp = handleException(errors.New("x"), testEC(), []ExceptionFilter{panicking})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	empty := ExceptionFilterFunc(func(error, *ExecutionContext) (*Response, error) { return nil, nil })
	resp = handleException(errors.New("x"), testEC(), []ExceptionFilter{empty})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
