package services

import (
	"sort"

	"diamondlottery/internal/models"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// drawSeed chains the round number with every valid secret in ticket order,
// so the seed depends on all honest revealers and none can predict it when
// committing.
func drawSeed(roundNo uint64, batches []*models.Purchase) [32]byte {
	no := uint256.NewInt(roundNo).Bytes32()
	seed := crypto.Keccak256Hash(no[:])
	for _, p := range batches {
		if p.Reveal != models.RevealValid {
			continue
		}
		secret := p.Secret.Bytes32()
		seed = crypto.Keccak256Hash(seed[:], secret[:])
	}
	return seed
}

// validRange is a validly revealed batch; offset counts the valid tickets
// of all earlier valid batches.
type validRange struct {
	start, quantity, offset uint64
}

// validRanges lists the validly revealed batches in ticket order and the
// total number of valid tickets.
func validRanges(batches []*models.Purchase) ([]validRange, uint64) {
	var out []validRange
	var total uint64
	for _, p := range batches {
		if p.Reveal != models.RevealValid {
			continue
		}
		out = append(out, validRange{start: p.Start, quantity: p.Quantity, offset: total})
		total += p.Quantity
	}
	return out, total
}

// ticketAt maps a position in the ordered valid tickets to its ticket number.
func ticketAt(ranges []validRange, pos uint64) uint64 {
	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].offset+ranges[i].quantity > pos })
	return ranges[i].start + pos - ranges[i].offset
}

// drawWinners samples up to n distinct tickets from the valid reveals. Draw
// i takes keccak256(seed || i) mod remaining as an index into the candidates
// still eligible, then swaps the pick out of the eligible prefix. Swaps are
// kept in a map keyed by position, so memory follows n and not the number
// of tickets sold.
func drawWinners(roundNo, n uint64, batches []*models.Purchase) []uint64 {
	ranges, total := validRanges(batches)
	if total == 0 {
		return nil
	}
	if n > total {
		n = total
	}
	seed := drawSeed(roundNo, batches)

	moved := make(map[uint64]uint64)
	at := func(k uint64) uint64 {
		if pos, ok := moved[k]; ok {
			return pos
		}
		return k
	}

	winners := make([]uint64, 0, n)
	remaining := total
	for i := uint64(1); i <= n; i++ {
		idx := uint256.NewInt(i).Bytes32()
		h := crypto.Keccak256(seed[:], idx[:])
		pick := new(uint256.Int).SetBytes(h)
		pick.Mod(pick, uint256.NewInt(remaining))

		k := pick.Uint64()
		winners = append(winners, ticketAt(ranges, at(k)))
		remaining--
		moved[k] = at(remaining)
		delete(moved, remaining)
	}
	return winners
}
