package apiclient

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/token"
)

// Envelope is the backend's response wrapper.
type Envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *EnvelopeError `json:"error,omitempty"`
}

type EnvelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ReissueShape names the two response shapes of the reissue endpoint.
type ReissueShape string

const (
	ReissueWrapped ReissueShape = "wrapped"
	ReissueBare    ReissueShape = "bare"
)

// ReissueResponse is the decoded reissue result together with the shape it arrived in.
type ReissueResponse struct {
	Shape ReissueShape
	Pair  token.Pair
}

// DecodeReissue accepts {success, data:{accessToken, refreshToken}} or a bare
// {accessToken, refreshToken}. Any other body is ErrUnknownResponseShape.
func DecodeReissue(body []byte) (ReissueResponse, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ReissueResponse{}, fmt.Errorf("%w: %v", apperrors.ErrUnknownResponseShape, err)
	}

	if data, ok := fields["data"]; ok {
		var env Envelope[token.Pair]
		if err := json.Unmarshal(body, &env); err != nil {
			return ReissueResponse{}, fmt.Errorf("%w: %v", apperrors.ErrUnknownResponseShape, err)
		}
		if _, hasSuccess := fields["success"]; hasSuccess && !env.Success {
			return ReissueResponse{}, envelopeFailure(env)
		}
		if string(data) == "null" || !env.Data.Complete() {
			return ReissueResponse{}, fmt.Errorf("wrapped reissue without token pair: %w", apperrors.ErrUnknownResponseShape)
		}
		return ReissueResponse{Shape: ReissueWrapped, Pair: env.Data}, nil
	}

	if _, ok := fields["accessToken"]; ok {
		var pair token.Pair
		if err := json.Unmarshal(body, &pair); err != nil {
			return ReissueResponse{}, fmt.Errorf("%w: %v", apperrors.ErrUnknownResponseShape, err)
		}
		if !pair.Complete() {
			return ReissueResponse{}, fmt.Errorf("bare reissue without refresh token: %w", apperrors.ErrUnknownResponseShape)
		}
		return ReissueResponse{Shape: ReissueBare, Pair: pair}, nil
	}

	return ReissueResponse{}, apperrors.ErrUnknownResponseShape
}

func decodeEnvelope[T any](status int, body []byte) (T, error) {
	var env Envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode backend response: %w", err)
	}
	if !env.Success {
		var zero T
		e := envelopeFailure(env)
		e.Status = status
		return zero, e
	}
	return env.Data, nil
}

func envelopeFailure[T any](env Envelope[T]) *APIError {
	e := &APIError{}
	if env.Error != nil {
		e.Code = env.Error.Code
		e.Message = env.Error.Message
	}
	return e
}

// errorFromBody builds an APIError for a non-2xx response, using the envelope's error when the
// body has one.
func errorFromBody(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	var env Envelope[json.RawMessage]
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		e.Code = env.Error.Code
		e.Message = env.Error.Message
	}
	return e
}
