package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostValidate(t *testing.T) {
	tests := []struct {
		name    string
		post    *Post
		wantErr error
	}{
		{
			name:    "valid post",
			post:    NewPost("осень", "текст поста", Picture{0x89, 0x50}, true),
			wantErr: nil,
		},
		{
			name:    "missing topic",
			post:    NewPost("", "текст", Picture{1}, false),
			wantErr: ErrEmptyTopic,
		},
		{
			name:    "missing text",
			post:    NewPost("осень", "", Picture{1}, false),
			wantErr: ErrEmptyPost,
		},
		{
			name:    "missing picture",
			post:    NewPost("осень", "текст", nil, false),
			wantErr: ErrEmptyPicture,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.post.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
