package subnets

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	scanerrors "edgescan/pkg/errors"
)

func TestParseBlock(t *testing.T) {
	t.Parallel()

	t.Run("CIDR descriptor", func(t *testing.T) {
		t.Parallel()
		block, err := ParseBlock("192.168.1.0/24")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := block.String(); got != "192.168.1.0/24" {
			t.Errorf("expected 192.168.1.0/24, got %s", got)
		}
	})

	t.Run("bare address becomes single-address block", func(t *testing.T) {
		t.Parallel()
		block, err := ParseBlock("1.1.1.1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := block.String(); got != "1.1.1.1/32" {
			t.Errorf("expected 1.1.1.1/32, got %s", got)
		}
	})

	t.Run("unmasked CIDR is normalized", func(t *testing.T) {
		t.Parallel()
		block, err := ParseBlock("10.0.0.77/24")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := block.String(); got != "10.0.0.0/24" {
			t.Errorf("expected 10.0.0.0/24, got %s", got)
		}
	})

	t.Run("surrounding whitespace is trimmed", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseBlock("  172.16.0.0/12\t"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("malformed descriptor", func(t *testing.T) {
		t.Parallel()
		for _, input := range []string{"", "not-a-subnet", "10.0.0.0/33", "10.0.0/24"} {
			_, err := ParseBlock(input)
			if !errors.Is(err, scanerrors.ErrSubnetParse) {
				t.Errorf("ParseBlock(%q): expected ErrSubnetParse, got %v", input, err)
			}
		}
	})
}

func TestRead(t *testing.T) {
	t.Parallel()

	const listing = "# edge ranges\n104.16.0.0/13\n\n172.64.0.0/13\n131.0.72.0/22\n"

	t.Run("from file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "subnets.txt")
		if err := os.WriteFile(path, []byte(listing), 0644); err != nil {
			t.Fatal(err)
		}

		blocks, err := Read(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"104.16.0.0/13", "172.64.0.0/13", "131.0.72.0/22"}
		if len(blocks) != len(want) {
			t.Fatalf("expected %d blocks, got %d", len(want), len(blocks))
		}
		for i, block := range blocks {
			if block.String() != want[i] {
				t.Errorf("block %d: expected %s, got %s", i, want[i], block)
			}
		}
	})

	t.Run("from URL", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(listing))
		}))
		defer srv.Close()

		blocks, err := Read(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(blocks) != 3 {
			t.Errorf("expected 3 blocks, got %d", len(blocks))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Read(filepath.Join(t.TempDir(), "nope.txt"))
		if !errors.Is(err, scanerrors.ErrSubnetsRead) {
			t.Errorf("expected ErrSubnetsRead, got %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := Read(srv.URL)
		if !errors.Is(err, scanerrors.ErrSubnetsRead) {
			t.Errorf("expected ErrSubnetsRead, got %v", err)
		}
	})

	t.Run("malformed line", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "subnets.txt")
		if err := os.WriteFile(path, []byte("10.0.0.0/24\ngarbage\n"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := Read(path)
		if !errors.Is(err, scanerrors.ErrSubnetParse) {
			t.Errorf("expected ErrSubnetParse, got %v", err)
		}
	})
}
