// basecampy | 2026
// repository_test.go

package user

import (
	"testing"
)

func TestVisibility(t *testing.T) {
	t.Parallel()

	if got := visibility(false); got != "is_deleted = FALSE" {
		t.Fatalf("default filter: got %q", got)
	}
	if got := visibility(true); got != "TRUE" {
		t.Fatalf("override: got %q", got)
	}
}

func TestListUsersParams_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		in           ListUsersParams
		wantPage     int
		wantPageSize int
	}{
		{"zero values", ListUsersParams{}, 1, 20},
		{"negative page", ListUsersParams{Page: -3, PageSize: 10}, 1, 10},
		{"oversized page size", ListUsersParams{Page: 2, PageSize: 500}, 2, 100},
		{"in range", ListUsersParams{Page: 3, PageSize: 50}, 3, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tt.in.Normalize()
			if tt.in.Page != tt.wantPage || tt.in.PageSize != tt.wantPageSize {
				t.Fatalf("got page=%d size=%d, want page=%d size=%d",
					tt.in.Page, tt.in.PageSize, tt.wantPage, tt.wantPageSize)
			}
		})
	}
}

func TestListUsersParams_Offset(t *testing.T) {
	t.Parallel()

	p := ListUsersParams{Page: 3, PageSize: 20}
	if got := p.Offset(); got != 40 {
		t.Fatalf("offset: got %d want 40", got)
	}
}
