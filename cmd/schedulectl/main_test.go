package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
)

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"migrate", "seed", "adduser", "seats"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestSeedRequiresFile(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"seed"})
	root.SetOut(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}

func TestPrintSeats(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	err := printSeats(cmd, "2026-02-02", []models.Seat{{
		Tutor:          models.Tutor{Name: "Bea", Category: "math"},
		Date:           "2026-02-02",
		DayName:        "Monday",
		Time:           "15:00",
		Occupied:       1,
		SeatsRemaining: 1,
	}})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "week of 2026-02-02: 1 open seat(s)")
	assert.Contains(t, out.String(), "Bea")
	assert.Contains(t, out.String(), "REMAINING")
}

func TestPrintSeatsEmpty(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, printSeats(cmd, "2026-02-02", nil))
	assert.Equal(t, "week of 2026-02-02: 0 open seat(s)\n", out.String())
}
