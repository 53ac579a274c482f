package gocmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   nil,
			want: []string{"test", "-json"},
		},
		{
			name: "packages and flags",
			in:   []string{"-race", "./...", "-run", "TestX"},
			want: []string{"test", "-json", "-race", "./...", "-run", "TestX"},
		},
		{
			name: "json already present",
			in:   []string{"-json", "./pkg"},
			want: []string{"test", "-json", "./pkg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TestArgs(tt.in))
		})
	}
}

func TestBuildCommand(t *testing.T) {
	got := BuildCommand([]string{"test", "-json", "-run", "Test A|B", "./..."})
	assert.Equal(t, `go test -json -run 'Test A|B' ./...`, got)
}

func TestCommand(t *testing.T) {
	cmd := Command(context.Background(), "test", "-json")
	assert.Equal(t, []string{"go", "test", "-json"}, cmd.Args)
}
