package gateway

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"url2pdf/internal/domain"
)

// LambdaHandler adapts h to API Gateway proxy events, for lambda.Start.
func LambdaHandler(h *Handler) func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		ev, err := FromAPIGateway(req)
		var resp Response
		if err != nil {
			resp = clientError(err, h.PolicyFor(req.Path), "")
		} else {
			resp = h.Handle(ctx, ev)
		}
		return ToAPIGateway(resp), nil
	}
}

// FromAPIGateway converts a proxy request, decoding a base64 body.
func FromAPIGateway(req events.APIGatewayProxyRequest) (Event, error) {
	body := []byte(req.Body)
	if req.IsBase64Encoded && req.Body != "" {
		b, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return Event{}, fmt.Errorf("%w: body is not valid base64: %v", domain.ErrInvalidBody, err)
		}
		body = b
	}
	return Event{
		Method: req.HTTPMethod,
		Path:   req.Path,
		Query:  req.QueryStringParameters,
		Body:   body,
	}, nil
}

// ToAPIGateway converts resp; PDF bodies are base64 encoded.
func ToAPIGateway(resp Response) events.APIGatewayProxyResponse {
	out := events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
	}
	if resp.Binary {
		out.Body = base64.StdEncoding.EncodeToString(resp.Body)
		out.IsBase64Encoded = true
	} else {
		out.Body = string(resp.Body)
	}
	return out
}
