package internal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

// lambdaModel serves requests handed over by the AWS Lambda runtime.
// API Gateway proxy events and Function URL events are both accepted.
type lambdaModel struct {
	cfg   ModelConfig
	start func(handler any, opts ...lambda.Option)
}

func newLambdaModel(cfg ModelConfig) *lambdaModel {
	return &lambdaModel{cfg: cfg, start: lambda.StartWithOptions}
}

func (m *lambdaModel) Kind() Kind {
	return Embedded
}

// Serve hands control to the Lambda runtime. It returns only when the
// runtime stops.
func (m *lambdaModel) Serve(ctx context.Context, h http.Handler) error {
	m.cfg.logger().Info("serving through the lambda runtime")
	m.start(LambdaHandler(h), lambda.WithContext(ctx))
	return nil
}

// LambdaHandler converts Lambda HTTP events to requests for h.
func LambdaHandler(h http.Handler) func(ctx context.Context, event json.RawMessage) (any, error) {
	return func(ctx context.Context, event json.RawMessage) (any, error) {
		var gw events.APIGatewayProxyRequest
		if err := json.Unmarshal(event, &gw); err == nil && gw.HTTPMethod != "" {
			req, err := gatewayRequest(ctx, gw)
			if err != nil {
				return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "malformed request"}, nil
			}
			rec := serveRecorded(h, req)
			return events.APIGatewayProxyResponse{
				StatusCode:        rec.status,
				MultiValueHeaders: rec.header,
				Body:              rec.body.String(),
			}, nil
		}

		var fu events.LambdaFunctionURLRequest
		if err := json.Unmarshal(event, &fu); err == nil && fu.RequestContext.HTTP.Method != "" {
			req, err := functionURLRequest(ctx, fu)
			if err != nil {
				return events.LambdaFunctionURLResponse{StatusCode: http.StatusBadRequest, Body: "malformed request"}, nil
			}
			rec := serveRecorded(h, req)
			cookies := rec.header.Values("Set-Cookie")
			rec.header.Del("Set-Cookie")
			return events.LambdaFunctionURLResponse{
				StatusCode: rec.status,
				Headers:    flattenHeader(rec.header),
				Body:       rec.body.String(),
				Cookies:    cookies,
			}, nil
		}

		return events.LambdaFunctionURLResponse{StatusCode: http.StatusBadRequest, Body: "unsupported event"}, nil
	}
}

func gatewayRequest(ctx context.Context, e events.APIGatewayProxyRequest) (*http.Request, error) {
	q := url.Values{}
	for k, vs := range e.MultiValueQueryStringParameters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, v := range e.QueryStringParameters {
		if !q.Has(k) {
			q.Set(k, v)
		}
	}
	req, err := newEventRequest(ctx, e.HTTPMethod, e.Path, q.Encode(), e.Body, e.IsBase64Encoded)
	if err != nil {
		return nil, err
	}
	for k, vs := range e.MultiValueHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, v := range e.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	req.Host = req.Header.Get("Host")
	req.RemoteAddr = e.RequestContext.Identity.SourceIP
	return req, nil
}

func functionURLRequest(ctx context.Context, e events.LambdaFunctionURLRequest) (*http.Request, error) {
	req, err := newEventRequest(ctx, e.RequestContext.HTTP.Method, e.RawPath, e.RawQueryString, e.Body, e.IsBase64Encoded)
	if err != nil {
		return nil, err
	}
	for k, v := range e.Headers {
		req.Header.Set(k, v)
	}
	for _, c := range e.Cookies {
		req.Header.Add("Cookie", c)
	}
	req.Host = e.RequestContext.DomainName
	req.RemoteAddr = e.RequestContext.HTTP.SourceIP
	return req, nil
}

func newEventRequest(ctx context.Context, method, path, rawQuery, body string, b64 bool) (*http.Request, error) {
	payload := []byte(body)
	if b64 {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, err
		}
		payload = decoded
	}
	target := path
	if target == "" {
		target = "/"
	}
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
}

// eventRecorder captures a response for conversion to a Lambda event.
type eventRecorder struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func (r *eventRecorder) Header() http.Header {
	return r.header
}

func (r *eventRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
}

func (r *eventRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(b)
}

func serveRecorded(h http.Handler, req *http.Request) *eventRecorder {
	rec := &eventRecorder{header: make(http.Header)}
	h.ServeHTTP(rec, req)
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	return rec
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[k] = strings.Join(vs, ",")
	}
	return out
}
