package seating_test

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/classroom/internal/domain/seating"
)

func TestNewChart(t *testing.T) {
	Convey("Given chart dimensions", t, func() {
		Convey("When they are zero", func() {
			c, err := seating.NewChart(" Period 3 ", 0, 0, []string{"Ada", " Ada", "", "Ben"})

			Convey("Then the default grid and a clean roster are used", func() {
				So(err, ShouldBeNil)
				rows, cols := c.Size()
				So(rows, ShouldEqual, seating.DefaultRows)
				So(cols, ShouldEqual, seating.DefaultCols)
				So(c.Title(), ShouldEqual, "Period 3")
				So(c.Students(), ShouldResemble, []string{"Ada", "Ben"})
				So(c.Seats(), ShouldBeEmpty)
				So(c.EmptyPositions(), ShouldHaveLength, 30)
			})
		})

		Convey("When they are outside the limits", func() {
			_, rowsErr := seating.NewChart("", 11, 4, nil)
			_, colsErr := seating.NewChart("", 4, 1, nil)

			Convey("Then ErrInvalidChart is returned", func() {
				So(errors.Is(rowsErr, seating.ErrInvalidChart), ShouldBeTrue)
				So(errors.Is(colsErr, seating.ErrInvalidChart), ShouldBeTrue)
			})
		})
	})
}

func TestChartMoves(t *testing.T) {
	Convey("Given a 2x3 chart of four students", t, func() {
		c, err := seating.NewChart("math", 2, 3, []string{"Ada", "Ben", "Cy", "Dee"})
		So(err, ShouldBeNil)

		Convey("When a student is moved twice", func() {
			So(c.UpdatePosition("Ada", seating.Position{Row: 0, Col: 0}), ShouldBeNil)
			So(c.UpdatePosition("Ada", seating.Position{Row: 1, Col: 2}), ShouldBeNil)

			Convey("Then only the last desk is occupied", func() {
				pos, ok := c.PositionOf("Ada")
				So(ok, ShouldBeTrue)
				So(pos, ShouldResemble, seating.Position{Row: 1, Col: 2})
				So(c.Seats(), ShouldResemble, []seating.Seat{{Position: seating.Position{Row: 1, Col: 2}, Student: "Ada"}})
				So(c.EmptyPositions(), ShouldHaveLength, 5)
				So(c.EmptyPositions()[0], ShouldResemble, seating.Position{Row: 0, Col: 0})
			})
		})

		Convey("When a student takes an occupied desk", func() {
			So(c.UpdatePosition("Ada", seating.Position{Row: 0, Col: 1}), ShouldBeNil)
			So(c.UpdatePosition("Ben", seating.Position{Row: 0, Col: 1}), ShouldBeNil)

			Convey("Then the previous occupant is unseated", func() {
				_, ok := c.PositionOf("Ada")
				So(ok, ShouldBeFalse)
				So(c.Seats(), ShouldHaveLength, 1)
			})
		})

		Convey("When the move is invalid", func() {
			unknown := c.UpdatePosition("Zed", seating.Position{})
			outside := c.UpdatePosition("Ada", seating.Position{Row: 2, Col: 0})
			negative := c.UpdatePosition("Ada", seating.Position{Row: 0, Col: -1})

			Convey("Then the reason is reported and nothing changes", func() {
				So(errors.Is(unknown, seating.ErrUnknownStudent), ShouldBeTrue)
				So(errors.Is(outside, seating.ErrOutOfBounds), ShouldBeTrue)
				So(errors.Is(negative, seating.ErrInvalidMove), ShouldBeTrue)
				So(c.Seats(), ShouldBeEmpty)
			})
		})
	})
}

func TestChartArrange(t *testing.T) {
	Convey("Given a 2x2 chart with more students than desks", t, func() {
		c, err := seating.NewChart("", 2, 2, []string{"A", "B", "C", "D", "E"})
		So(err, ShouldBeNil)

		Convey("When auto arranged", func() {
			seated := c.AutoArrange()

			Convey("Then desks fill left to right and the rest stay unseated", func() {
				So(seated, ShouldEqual, 4)
				So(c.Seats(), ShouldResemble, []seating.Seat{
					{Position: seating.Position{Row: 0, Col: 0}, Student: "A"},
					{Position: seating.Position{Row: 0, Col: 1}, Student: "B"},
					{Position: seating.Position{Row: 1, Col: 0}, Student: "C"},
					{Position: seating.Position{Row: 1, Col: 1}, Student: "D"},
				})
				So(c.EmptyPositions(), ShouldBeEmpty)
				_, ok := c.PositionOf("E")
				So(ok, ShouldBeFalse)
			})

			Convey("And Clear empties the grid", func() {
				c.Clear()
				So(c.Seats(), ShouldBeEmpty)
				So(c.EmptyPositions(), ShouldHaveLength, 4)
			})
		})

		Convey("When seats are placed from row,col keys", func() {
			err := c.Place(map[string]string{"1,1": "A", "0, 1": "B"})

			Convey("Then each student sits at their key", func() {
				So(err, ShouldBeNil)
				pos, _ := c.PositionOf("B")
				So(pos.String(), ShouldEqual, "0,1")
				pos, _ = c.PositionOf("A")
				So(pos, ShouldResemble, seating.Position{Row: 1, Col: 1})
			})
		})

		Convey("When a key is malformed", func() {
			err := c.Place(map[string]string{"front": "A"})

			Convey("Then ErrInvalidChart is returned", func() {
				So(errors.Is(err, seating.ErrInvalidChart), ShouldBeTrue)
			})
		})
	})
}
