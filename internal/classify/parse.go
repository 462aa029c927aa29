package classify

import (
	"encoding/json"
	"errors"
	"strings"
)

// predictResponse is the body of the /predict endpoint
type predictResponse struct {
	PredictedClass string `json:"predicted_class"`
	Error          string `json:"error"`
}

// decodePrediction applies the response rules shared by every backend.
// A non-2xx status fails regardless of body; a body with an error fails even on 200.
func decodePrediction(statusCode int, body []byte) (*Prediction, error) {
	if statusCode < 200 || statusCode > 299 {
		return nil, &Error{Kind: KindHTTPStatus, StatusCode: statusCode}
	}

	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Kind: KindDecode, Err: err}
	}

	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return nil, &Error{Kind: KindService, Message: msg}
	}

	label := strings.TrimSpace(resp.PredictedClass)
	if label == "" {
		return nil, &Error{Kind: KindService, Message: "no prediction returned"}
	}

	return &Prediction{PredictedClass: label}, nil
}

// extractJSON pulls the JSON object out of a model reply that may wrap it in prose or markdown fences
func extractJSON(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, &Error{Kind: KindDecode, Err: errors.New("no JSON object found in response")}
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, &Error{Kind: KindDecode, Err: errors.New("invalid JSON object in response")}
	}

	return []byte(text[startIdx : endIdx+1]), nil
}

// decodeModelReply is decodePrediction for LLM backends, which always answer with status 200 text
func decodeModelReply(text string) (*Prediction, error) {
	body, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	return decodePrediction(200, body)
}
