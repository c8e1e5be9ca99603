package middleware

import (
	"net/http"

	"github.com/upb/expert-gateway/internal/policy"
	"github.com/upb/expert-gateway/services"
)

type verdictKind int

const (
	verdictContinue verdictKind = iota
	verdictAllow
	verdictReject
)

// Verdict is the result of one gate check
type Verdict struct {
	kind verdictKind
	Err  *services.DomainError
}

// Continue hands the request to the next check
func Continue() Verdict {
	return Verdict{kind: verdictContinue}
}

// Allow ends the pipeline and lets the request through
func Allow() Verdict {
	return Verdict{kind: verdictAllow}
}

// Reject ends the pipeline with err as the response
func Reject(err *services.DomainError) Verdict {
	return Verdict{kind: verdictReject, Err: err}
}

// Continues reports whether the pipeline should run the next check
func (v Verdict) Continues() bool {
	return v.kind == verdictContinue
}

// Allowed reports whether the request may proceed
func (v Verdict) Allowed() bool {
	return v.kind == verdictAllow
}

// Rejected reports whether the request must be answered with Err
func (v Verdict) Rejected() bool {
	return v.kind == verdictReject
}

// gateState is scoped to one request and never shared
type gateState struct {
	request     *http.Request
	token       string
	user        *AuthUser
	requirement policy.Requirement
}

type gateCheck struct {
	name string
	run  func(*gateState) Verdict
}
