package auth

import (
	"encoding/base64"
	"testing"

	"github.com/briarcliff/relaygate/internal/model"
)

func TestAuthenticate_NilPolicyAlwaysPasses(t *testing.T) {
	if !Authenticate(nil, nil) {
		t.Fatal("nil policy should always authenticate")
	}
}

func TestAuthenticate_Basic_OK(t *testing.T) {
	policy := &model.AuthPolicy{Kind: model.AuthBasic, Username: "alice", Password: "wonderland"}
	creds := base64.StdEncoding.EncodeToString([]byte("alice:wonderland"))
	headers := map[string][]string{"Authorization": {"Basic " + creds}}
	if !Authenticate(policy, headers) {
		t.Fatal("want authenticated")
	}
}

func TestAuthenticate_Basic_WrongPassword(t *testing.T) {
	policy := &model.AuthPolicy{Kind: model.AuthBasic, Username: "alice", Password: "wonderland"}
	creds := base64.StdEncoding.EncodeToString([]byte("alice:wrong"))
	headers := map[string][]string{"Authorization": {"Basic " + creds}}
	if Authenticate(policy, headers) {
		t.Fatal("want rejected")
	}
}

func TestAuthenticate_Basic_MissingHeader(t *testing.T) {
	policy := &model.AuthPolicy{Kind: model.AuthBasic, Username: "alice", Password: "wonderland"}
	if Authenticate(policy, map[string][]string{}) {
		t.Fatal("want rejected without Authorization header")
	}
}

func TestAuthenticate_APIKey_OK(t *testing.T) {
	policy := &model.AuthPolicy{Kind: model.AuthAPIKey, HeaderName: "X-API-Key", APIKey: "secret"}
	headers := map[string][]string{"x-api-key": {"secret"}}
	if !Authenticate(policy, headers) {
		t.Fatal("want authenticated (case-insensitive header match)")
	}
}

func TestAuthenticate_APIKey_Wrong(t *testing.T) {
	policy := &model.AuthPolicy{Kind: model.AuthAPIKey, HeaderName: "X-API-Key", APIKey: "secret"}
	headers := map[string][]string{"X-API-Key": {"nope"}}
	if Authenticate(policy, headers) {
		t.Fatal("want rejected")
	}
}

func TestAuthenticate_UnknownKindRejects(t *testing.T) {
	policy := &model.AuthPolicy{Kind: model.AuthKind("bogus")}
	if Authenticate(policy, nil) {
		t.Fatal("want rejected for unknown auth kind")
	}
}
