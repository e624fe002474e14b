// Package seating models a classroom seating chart: a grid of desks, the
// class roster and which student sits where.
package seating

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Grid limits.
const (
	MinRows     = 2
	MaxRows     = 10
	MinCols     = 2
	MaxCols     = 12
	DefaultRows = 5
	DefaultCols = 6
)

// Position is a desk, zero-indexed from the front left.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// String renders p as "row,col".
func (p Position) String() string {
	return strconv.Itoa(p.Row) + "," + strconv.Itoa(p.Col)
}

// ParsePosition parses a "row,col" key.
func ParsePosition(s string) (Position, error) {
	row, col, ok := strings.Cut(s, ",")
	if !ok {
		return Position{}, fmt.Errorf("position %q: %w", s, ErrInvalidChart)
	}
	r, err := strconv.Atoi(strings.TrimSpace(row))
	if err != nil {
		return Position{}, fmt.Errorf("position %q: %w", s, ErrInvalidChart)
	}
	c, err := strconv.Atoi(strings.TrimSpace(col))
	if err != nil {
		return Position{}, fmt.Errorf("position %q: %w", s, ErrInvalidChart)
	}
	return Position{Row: r, Col: c}, nil
}

// Seat is an occupied desk.
type Seat struct {
	Position
	Student string `json:"student"`
}

// Chart is a seating chart. It is safe for concurrent use.
type Chart struct {
	mu       sync.RWMutex
	title    string
	rows     int
	cols     int
	students []string
	seats    map[Position]string
}

// NewChart builds an empty chart. Zero rows or cols use the defaults;
// student names are trimmed and de-duplicated in order.
func NewChart(title string, rows, cols int, students []string) (*Chart, error) {
	if rows == 0 {
		rows = DefaultRows
	}
	if cols == 0 {
		cols = DefaultCols
	}
	if rows < MinRows || rows > MaxRows {
		return nil, fmt.Errorf("rows %d outside %d..%d: %w", rows, MinRows, MaxRows, ErrInvalidChart)
	}
	if cols < MinCols || cols > MaxCols {
		return nil, fmt.Errorf("cols %d outside %d..%d: %w", cols, MinCols, MaxCols, ErrInvalidChart)
	}
	return &Chart{
		title:    strings.TrimSpace(title),
		rows:     rows,
		cols:     cols,
		students: UniqueNames(students),
		seats:    make(map[Position]string),
	}, nil
}

// Title is the chart's display name.
func (c *Chart) Title() string { return c.title }

// Size reports the grid dimensions.
func (c *Chart) Size() (rows, cols int) { return c.rows, c.cols }

// Students returns the roster in order.
func (c *Chart) Students() []string {
	return append([]string(nil), c.students...)
}

func (c *Chart) onRoster(name string) bool {
	for _, s := range c.students {
		if s == name {
			return true
		}
	}
	return false
}

func (c *Chart) inBounds(p Position) bool {
	return p.Row >= 0 && p.Row < c.rows && p.Col >= 0 && p.Col < c.cols
}

// UpdatePosition moves student to p, leaving their previous desk empty.
// A student already at p is unseated.
func (c *Chart) UpdatePosition(student string, p Position) error {
	student = strings.TrimSpace(student)
	if student == "" || !c.onRoster(student) {
		return fmt.Errorf("%q: %w", student, ErrUnknownStudent)
	}
	if !c.inBounds(p) {
		return fmt.Errorf("(%d, %d) in %dx%d: %w", p.Row, p.Col, c.rows, c.cols, ErrOutOfBounds)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for pos, name := range c.seats {
		if name == student {
			delete(c.seats, pos)
		}
	}
	c.seats[p] = student
	return nil
}

// PositionOf returns the desk of student.
func (c *Chart) PositionOf(student string) (Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for pos, name := range c.seats {
		if name == student {
			return pos, true
		}
	}
	return Position{}, false
}

// EmptyPositions lists the unoccupied desks row by row.
func (c *Chart) EmptyPositions() []Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Position, 0, c.rows*c.cols-len(c.seats))
	for r := 0; r < c.rows; r++ {
		for col := 0; col < c.cols; col++ {
			p := Position{Row: r, Col: col}
			if _, ok := c.seats[p]; !ok {
				out = append(out, p)
			}
		}
	}
	return out
}

// Seats lists the occupied desks row by row.
func (c *Chart) Seats() []Seat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Seat, 0, len(c.seats))
	for p, name := range c.seats {
		out = append(out, Seat{Position: p, Student: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Place seats students by "row,col" keys, in key order.
func (c *Chart) Place(seats map[string]string) error {
	keys := make([]string, 0, len(seats))
	for k := range seats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p, err := ParsePosition(k)
		if err != nil {
			return err
		}
		if err := c.UpdatePosition(seats[k], p); err != nil {
			return fmt.Errorf("seat %s: %w", k, err)
		}
	}
	return nil
}

// Clear unseats everyone.
func (c *Chart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seats = make(map[Position]string)
}

// AutoArrange seats the roster left to right, front to back. Students
// beyond the number of desks stay unseated. It returns how many were seated.
func (c *Chart) AutoArrange() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seats = make(map[Position]string, len(c.students))
	n := min(len(c.students), c.rows*c.cols)
	for i := 0; i < n; i++ {
		c.seats[Position{Row: i / c.cols, Col: i % c.cols}] = c.students[i]
	}
	return n
}

// UniqueNames trims names and drops blanks and repeats, keeping order.
func UniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
