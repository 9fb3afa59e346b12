package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
)

var suitGlyphs = map[bridge.Suit]string{
	bridge.Spades:   "♠",
	bridge.Hearts:   "♥",
	bridge.Diamonds: "♦",
	bridge.Clubs:    "♣",
}

// handLines renders one line per suit, spades first. A void shows as "-".
func handLines(h bridge.Hand) []string {
	lines := make([]string, 0, len(bridge.DisplaySuits))
	for _, suit := range bridge.DisplaySuits {
		var ranks strings.Builder
		for _, c := range h.Holding(suit) {
			ranks.WriteString(c.Rank.String())
		}
		holding := ranks.String()
		if holding == "" {
			holding = "-"
		}
		glyph := suitGlyphs[suit]
		if suit == bridge.Hearts || suit == bridge.Diamonds {
			glyph = pterm.LightRed(glyph)
		}
		lines = append(lines, glyph+" "+holding)
	}
	return lines
}

func handBox(title string, h bridge.Hand) string {
	body := strings.Join(handLines(h), "\n") + fmt.Sprintf("\n%d HCP", h.HighCardPoints())
	return pterm.DefaultBox.
		WithHorizontalPadding(2).
		WithTitle(pterm.LightCyan(title)).
		WithTitleTopLeft().
		Sprint(body)
}

// printDeal draws all four hands in compass layout.
func printDeal(d bridge.Deal) {
	box := func(s bridge.Seat) pterm.Panel {
		return pterm.Panel{Data: handBox(s.String(), d.Hand(s))}
	}
	_ = pterm.DefaultPanel.WithPanels([][]pterm.Panel{
		{{Data: ""}, box(bridge.North)},
		{box(bridge.West), {Data: dealInfo(d)}, box(bridge.East)},
		{{Data: ""}, box(bridge.South)},
	}).Render()
}

func dealInfo(d bridge.Deal) string {
	return fmt.Sprintf("\nDealer: %s\nVul: %s", d.Dealer, d.Vulnerable)
}

// printExercise shows the hand of the seat to call next and the auction so far.
func printExercise(view exerciseView) {
	seat := view.NextSeat
	hand := handBox(fmt.Sprintf("%s (%s)", seat, view.Vulnerable), view.Deal.Hand(seat))
	auction := pterm.DefaultBox.
		WithTitle(pterm.LightYellow("AUCTION")).
		WithTitleTopCenter().
		Sprint(strings.TrimRight(view.Table, "\n"))

	_ = pterm.DefaultPanel.WithPanels([][]pterm.Panel{
		{{Data: hand}, {Data: auction}},
	}).Render()
}

// exerciseView is the subset of an exercise the CLI draws.
type exerciseView struct {
	ID         string
	Deal       bridge.Deal
	Vulnerable bridge.Vulnerability
	NextSeat   bridge.Seat
	Table      string
}

// callTally counts the calls recorded on one exercise, most popular first
// and alphabetical among equals.
type callTally struct {
	Call  string
	Count int
}

func tallyCalls(bids []*practice.ExerciseBid) []callTally {
	counts := make(map[string]int)
	for _, b := range bids {
		counts[b.Bid.String()]++
	}
	out := make([]callTally, 0, len(counts))
	for call, n := range counts {
		out = append(out, callTally{Call: call, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Call < out[j].Call
	})
	return out
}

func printTally(tallies []callTally) {
	if len(tallies) == 0 {
		return
	}
	data := pterm.TableData{{"Call", "Times"}}
	for _, t := range tallies {
		data = append(data, []string{t.Call, fmt.Sprint(t.Count)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func callLabels(calls []bridge.Bid) []string {
	labels := make([]string, len(calls))
	for i, c := range calls {
		labels[i] = c.String()
	}
	return labels
}
