package domain

import "errors"

var (
	// ErrUnauthorized means the caller has no resolvable session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrGenerationParse means generated text lacked a usable structured block.
	ErrGenerationParse = errors.New("generation parse error")
	// ErrSearchService covers search failures, including a missing credential.
	ErrSearchService = errors.New("search service error")
	// ErrNoArticles means the search succeeded but returned nothing.
	ErrNoArticles = errors.New("no articles found")
	// ErrStorage wraps repository failures.
	ErrStorage = errors.New("storage error")
	// ErrPipelineFatal aborts a whole batch run.
	ErrPipelineFatal = errors.New("pipeline fatal error")
	// ErrInvalidRequest rejects malformed caller input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound is returned for rows that do not exist or belong to another user.
	ErrNotFound = errors.New("not found")
)
