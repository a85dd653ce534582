// Package subnets loads CIDR block lists and draws bounded, deterministic
// address samples from them without materializing whole address spaces.
package subnets

import (
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"os"
	"strings"
	"time"

	"edgescan/pkg/errors"
)

// Block is one CIDR block from the subnet list. Immutable once parsed.
type Block struct {
	Prefix netip.Prefix
}

func (b Block) String() string {
	return b.Prefix.String()
}

// Candidate is one address drawn from a block, queued for probing.
type Candidate struct {
	IP    netip.Addr
	Block Block
}

// ParseBlock parses a CIDR descriptor. A bare address is accepted as a
// single-address block.
func ParseBlock(s string) (Block, error) {
	s = strings.TrimSpace(s)

	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return Block{}, &errors.SubnetError{Subnet: s, Err: errors.ErrSubnetParse}
		}
		return Block{Prefix: netip.PrefixFrom(addr, addr.BitLen())}, nil
	}

	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return Block{}, &errors.SubnetError{Subnet: s, Err: errors.ErrSubnetParse}
	}
	return Block{Prefix: prefix.Masked()}, nil
}

const readTimeout = 30 * time.Second

// Read loads a subnet list from a local file path or an http(s) URL.
// Blank lines and lines starting with '#' are skipped. Block order is
// preserved as written.
func Read(source string) ([]Block, error) {
	var data []byte

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		client := &http.Client{Timeout: readTimeout}
		resp, err := client.Get(source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrSubnetsRead, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: unexpected status %s from %q", errors.ErrSubnetsRead, resp.Status, source)
		}
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrSubnetsRead, err)
		}
	} else {
		var err error
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrSubnetsRead, err)
		}
	}

	var blocks []Block
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		block, err := ParseBlock(line)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}
