package subnets

import (
	"encoding/binary"
	"net/netip"
)

// usable host bits before the theoretical block size stops fitting an int.
// Blocks wider than this are sampled from their low 62-bit slice, which is
// still far more addresses than any realistic sample size.
const maxHostBits = 62

// wideBlockCap bounds whole-block expansion of blocks wider than
// maxHostBits. Such blocks cannot be drawn in full, so a zero sampleSize
// falls back to this cap instead of an unallocatable count.
const wideBlockCap = 1 << 16

// NumAddrs returns min(sampleSize, addressesInBlock). A sampleSize of 0
// means the whole block, capped at wideBlockCap for blocks too wide to
// expand. The count is computed from the prefix length alone, so it is
// cheap, deterministic and reusable for sizing progress totals. The result
// is always a valid allocation size.
func NumAddrs(b Block, sampleSize int) int {
	hostBits := b.Prefix.Addr().BitLen() - b.Prefix.Bits()

	if hostBits > maxHostBits {
		if sampleSize > 0 {
			return sampleSize
		}
		return wideBlockCap
	}

	total := 1 << hostBits
	if sampleSize > 0 && sampleSize < total {
		return sampleSize
	}
	return total
}

// Sample draws NumAddrs(b, sampleSize) distinct addresses from the block,
// evenly strided from its base address. Blocks no larger than the sample
// size are returned whole, in address order. The block's address space is
// never materialized.
func Sample(b Block, sampleSize int) []netip.Addr {
	n := NumAddrs(b, sampleSize)

	hostBits := b.Prefix.Addr().BitLen() - b.Prefix.Bits()
	if hostBits > maxHostBits {
		hostBits = maxHostBits
	}
	total := uint64(1) << hostBits
	stride := total / uint64(n)

	base := b.Prefix.Masked().Addr()
	addrs := make([]netip.Addr, 0, n)
	for i := 0; i < n; i++ {
		addrs = append(addrs, addrAt(base, uint64(i)*stride))
	}
	return addrs
}

// Expand samples every block in order and concatenates the results into one
// candidate list, each candidate tagged with its originating block.
func Expand(blocks []Block, sampleSize int) []Candidate {
	var candidates []Candidate
	for _, block := range blocks {
		for _, addr := range Sample(block, sampleSize) {
			candidates = append(candidates, Candidate{IP: addr, Block: block})
		}
	}
	return candidates
}

// addrAt returns base + offset. The offset is added into the low 8 bytes of
// an IPv6 address with carry; IPv4 uses plain 32-bit arithmetic.
func addrAt(base netip.Addr, offset uint64) netip.Addr {
	if base.Is4() {
		b := base.As4()
		v := binary.BigEndian.Uint32(b[:]) + uint32(offset)
		binary.BigEndian.PutUint32(b[:], v)
		return netip.AddrFrom4(b)
	}

	b := base.As16()
	lo := binary.BigEndian.Uint64(b[8:])
	sum := lo + offset
	binary.BigEndian.PutUint64(b[8:], sum)
	if sum < lo { // carry into the high half
		hi := binary.BigEndian.Uint64(b[:8])
		binary.BigEndian.PutUint64(b[:8], hi+1)
	}
	return netip.AddrFrom16(b)
}
