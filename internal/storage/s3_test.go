package storage

import (
	"errors"
	"testing"

	"github.com/aws/smithy-go"
)

func TestClassifyHeadError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "missing bucket",
			err:  &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"},
			want: ErrBucketNotFound,
		},
		{
			name: "no such bucket",
			err:  &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "The specified bucket does not exist"},
			want: ErrBucketNotFound,
		},
		{
			name: "bad key id",
			err:  &smithy.GenericAPIError{Code: "InvalidAccessKeyId", Message: "bad key"},
			want: ErrAuthFailed,
		},
		{
			name: "bad signature",
			err:  &smithy.GenericAPIError{Code: "SignatureDoesNotMatch", Message: "bad secret"},
			want: ErrAuthFailed,
		},
		{
			name: "denied",
			err:  &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"},
			want: ErrAuthFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyHeadError("backups", tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyHeadError() = %v, want wrapped %v", got, tt.want)
			}
		})
	}
}

func TestClassifyHeadErrorUnknown(t *testing.T) {
	err := classifyHeadError("backups", errors.New("connection refused"))
	if errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrBucketNotFound) {
		t.Errorf("unexpected classification: %v", err)
	}
}
