package pattern

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/fiducialpose/config"
)

// CharucoBoard is a checkerboard with a marker inside every white square. The board origin is its
// top-left corner, x grows along the columns and y grows down the rows, z = 0. Cell (row, col) holds
// a marker when row and col differ in parity; those cells receive ids 0, 1, 2... in row-major order,
// the same assignment the corner detector's board model uses.
type CharucoBoard struct {
	dict        Dictionary
	cols, rows  int
	checkerSize float64
	markerSize  float64

	idMatrix [][]int
	// cell of each marker id, indexed by id
	cells [][2]int
}

// NewCharucoBoard derives the id layout and checks that the dictionary holds enough ids for it.
func NewCharucoBoard(cfg *config.Charuco) (*CharucoBoard, error) {
	dict, err := ParseDictionary(cfg.MarkerType)
	if err != nil {
		return nil, err
	}
	b := &CharucoBoard{
		dict:        dict,
		cols:        cfg.CheckerGridSize[0],
		rows:        cfg.CheckerGridSize[1],
		checkerSize: mmToMeters(cfg.CheckerSize),
		markerSize:  mmToMeters(cfg.MarkerSize),
	}

	b.idMatrix = make([][]int, b.rows)
	next := 0
	for row := 0; row < b.rows; row++ {
		b.idMatrix[row] = make([]int, b.cols)
		for col := 0; col < b.cols; col++ {
			if row%2 == col%2 {
				b.idMatrix[row][col] = -1
				continue
			}
			b.idMatrix[row][col] = next
			b.cells = append(b.cells, [2]int{row, col})
			next++
		}
	}
	if next > 0 {
		if err := dict.checkID(next - 1); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Dictionary returns the marker dictionary to detect with.
func (b *CharucoBoard) Dictionary() Dictionary {
	return b.dict
}

// GridSize returns the number of columns and rows.
func (b *CharucoBoard) GridSize() (cols, rows int) {
	return b.cols, b.rows
}

// CheckerSize returns the checker square side in meters.
func (b *CharucoBoard) CheckerSize() float64 {
	return b.checkerSize
}

// MarkerSize returns the marker side in meters.
func (b *CharucoBoard) MarkerSize() float64 {
	return b.markerSize
}

// BoardSize returns the board width and height in meters.
func (b *CharucoBoard) BoardSize() (width, height float64) {
	return float64(b.cols) * b.checkerSize, float64(b.rows) * b.checkerSize
}

// IDMatrix returns a rows x cols copy of the per-cell marker ids, -1 for cells without a marker.
func (b *CharucoBoard) IDMatrix() [][]int {
	out := make([][]int, len(b.idMatrix))
	for i, row := range b.idMatrix {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// NumMarkers returns how many markers the board carries.
func (b *CharucoBoard) NumMarkers() int {
	return len(b.cells)
}

// MarkerCorners returns the object points of a marker's corners in detector order: top-left,
// top-right, bottom-right, bottom-left.
func (b *CharucoBoard) MarkerCorners(id int) ([4]r3.Vector, error) {
	if id < 0 || id >= len(b.cells) {
		return [4]r3.Vector{}, &UnknownMarkerIDError{ID: id}
	}
	cell := b.cells[id]
	inset := (b.checkerSize - b.markerSize) / 2
	x := float64(cell[1])*b.checkerSize + inset
	y := float64(cell[0])*b.checkerSize + inset
	s := b.markerSize
	return [4]r3.Vector{
		{X: x, Y: y},
		{X: x + s, Y: y},
		{X: x + s, Y: y + s},
		{X: x, Y: y + s},
	}, nil
}

// MatchImagePoints pairs the corners of every detected marker that belongs to the board with the
// marker's object points. ids and corners are parallel; ids not on the board are skipped. The
// result holds four points per matched marker, in detection order.
func (b *CharucoBoard) MatchImagePoints(ids []int, corners [][4]r2.Point) ([]r3.Vector, []r2.Point) {
	var objectPoints []r3.Vector
	var imagePoints []r2.Point
	for i, id := range ids {
		if i >= len(corners) {
			break
		}
		obj, err := b.MarkerCorners(id)
		if err != nil {
			continue
		}
		objectPoints = append(objectPoints, obj[:]...)
		imagePoints = append(imagePoints, corners[i][:]...)
	}
	return objectPoints, imagePoints
}
