package services

import (
	"testing"
	"time"

	"diamondlottery/internal/models"
	"diamondlottery/internal/token"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotteryService_CreateRound(t *testing.T) {
	h := newHarness(t)
	valid := models.RoundConfig{
		EndTime:         h.start.Add(time.Hour),
		TicketsOffered:  10,
		NumberOfWinners: 1,
		MinPercentage:   50,
		TicketPrice:     uint256.NewInt(10),
		URL:             "www.mock-url.com",
	}

	t.Run("Test non-operator is rejected", func(t *testing.T) {
		_, err := h.as(buyer(1)).CreateRound(valid)
		require.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("Test invalid configurations", func(t *testing.T) {
		cases := map[string]func(c *models.RoundConfig){
			"end time in the past":  func(c *models.RoundConfig) { c.EndTime = h.start },
			"no tickets":            func(c *models.RoundConfig) { c.TicketsOffered = 0 },
			"no winners":            func(c *models.RoundConfig) { c.NumberOfWinners = 0 },
			"more winners":          func(c *models.RoundConfig) { c.NumberOfWinners = 11 },
			"percentage above 100":  func(c *models.RoundConfig) { c.MinPercentage = 101 },
			"zero price":            func(c *models.RoundConfig) { c.TicketPrice = new(uint256.Int) },
			"missing price":         func(c *models.RoundConfig) { c.TicketPrice = nil },
		}
		for name, mutate := range cases {
			cfg := valid
			mutate(&cfg)
			_, err := h.as(h.owner).CreateRound(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig, name)
		}
		assert.Zero(t, h.st.RoundCount)
	})

	t.Run("Test rounds are numbered from one", func(t *testing.T) {
		first, err := h.as(h.owner).CreateRound(valid)
		require.NoError(t, err)
		second, err := h.as(h.owner).CreateRound(valid)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), first)
		assert.Equal(t, uint64(2), second)

		info, err := h.as(buyer(1)).RoundInfo(first)
		require.NoError(t, err)
		assert.Equal(t, valid.EndTime, info.EndTime)
		assert.Equal(t, valid.EndTime.Add(time.Hour), info.RevealCloseTime)
		assert.Equal(t, uint64(10), info.TicketsOffered)
		assert.Equal(t, uint64(1), info.NumberOfWinners)
		assert.Equal(t, uint64(50), info.MinPercentage)
		assert.Equal(t, uint64(10), info.TicketPrice.Uint64())
		assert.Equal(t, models.StateSelling, info.State)

		url, err := h.as(buyer(1)).RoundURL(first)
		require.NoError(t, err)
		assert.Equal(t, "www.mock-url.com", url.URL)

		created := 0
		for _, ev := range h.env.events {
			if ev.Kind == models.EventRoundCreated {
				created++
			}
		}
		assert.Equal(t, 2, created)
	})

	t.Run("Test payment token is snapshotted", func(t *testing.T) {
		other := token.NewLedger("OT")
		h.env.tokens.Add(other.Address(), other)
		require.NoError(t, h.as(h.owner).SetPaymentToken(other.Address()))
		third, err := h.as(h.owner).CreateRound(valid)
		require.NoError(t, err)

		first, err := h.as(buyer(1)).RoundPaymentToken(1)
		require.NoError(t, err)
		assert.Equal(t, h.ledger.Address(), first)
		latest, err := h.as(buyer(1)).RoundPaymentToken(third)
		require.NoError(t, err)
		assert.Equal(t, other.Address(), latest)
	})

	t.Run("Test unknown payment token is rejected", func(t *testing.T) {
		err := h.as(h.owner).SetPaymentToken(buyer(9))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("Test unknown round", func(t *testing.T) {
		_, err := h.as(buyer(1)).RoundInfo(42)
		require.ErrorIs(t, err, ErrNoSuchRound)
	})
}

func TestLotteryService_CurrentRoundNo(t *testing.T) {
	h := newHarness(t)
	assert.Zero(t, h.as(buyer(1)).CurrentRoundNo())

	long, err := h.as(h.owner).CreateRound(models.RoundConfig{
		EndTime: h.start.Add(2 * time.Hour), TicketsOffered: 5, NumberOfWinners: 1, TicketPrice: uint256.NewInt(1),
	})
	require.NoError(t, err)
	short := h.createRound(5, 1, 0, 1) // ends at 30m

	assert.Equal(t, short, h.as(buyer(1)).CurrentRoundNo())

	h.at(time.Hour)
	assert.Equal(t, long, h.as(buyer(1)).CurrentRoundNo(), "only the first round is still open")

	h.at(3 * time.Hour)
	assert.Equal(t, short, h.as(buyer(1)).CurrentRoundNo(), "falls back to the latest round")
}

func TestLotteryService_TransferOwnership(t *testing.T) {
	h := newHarness(t)
	require.ErrorIs(t, h.as(buyer(1)).TransferOwnership(buyer(1)), ErrNotOwner)
	require.NoError(t, h.as(h.owner).TransferOwnership(buyer(1)))
	assert.Equal(t, buyer(1), h.as(buyer(2)).Owner())
	require.ErrorIs(t, h.as(h.owner).SetPaymentToken(h.ledger.Address()), ErrNotOwner)
}
