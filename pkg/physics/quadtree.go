package physics

// minCellSize stops subdivision so coincident points cannot recurse forever.
const minCellSize = 1.0

// Rect is an axis-aligned rectangle on the ground plane (X, Z).
type Rect struct {
	CenterX, CenterZ float64
	Width, Depth     float64
}

// Contains reports whether the ground projection of point lies in the rectangle
func (r Rect) Contains(point Vector3) bool {
	return point.X >= r.CenterX-r.Width/2 &&
		point.X < r.CenterX+r.Width/2 &&
		point.Z >= r.CenterZ-r.Depth/2 &&
		point.Z < r.CenterZ+r.Depth/2
}

func (r Rect) intersects(other Rect) bool {
	return !(other.CenterX-other.Width/2 > r.CenterX+r.Width/2 ||
		other.CenterX+other.Width/2 < r.CenterX-r.Width/2 ||
		other.CenterZ-other.Depth/2 > r.CenterZ+r.Depth/2 ||
		other.CenterZ+other.Depth/2 < r.CenterZ-r.Depth/2)
}

// QuadTree partitions ground-plane points for proximity queries.
type QuadTree[T any] struct {
	Boundary  Rect
	Capacity  int
	points    []Vector3
	objects   []T
	divided   bool
	northWest *QuadTree[T]
	northEast *QuadTree[T]
	southWest *QuadTree[T]
	southEast *QuadTree[T]
}

// NewQuadTree creates a new quad tree with the given boundary and capacity
func NewQuadTree[T any](boundary Rect, capacity int) *QuadTree[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &QuadTree[T]{
		Boundary: boundary,
		Capacity: capacity,
		points:   make([]Vector3, 0, capacity),
		objects:  make([]T, 0, capacity),
	}
}

// Insert adds an object at point. It returns false when the point lies
// outside the tree's boundary.
func (qt *QuadTree[T]) Insert(point Vector3, object T) bool {
	if !qt.Boundary.Contains(point) {
		return false
	}

	if !qt.divided && (len(qt.points) < qt.Capacity || qt.Boundary.Width <= minCellSize) {
		qt.points = append(qt.points, point)
		qt.objects = append(qt.objects, object)
		return true
	}

	if !qt.divided {
		qt.subdivide()
	}

	return qt.northWest.Insert(point, object) ||
		qt.northEast.Insert(point, object) ||
		qt.southWest.Insert(point, object) ||
		qt.southEast.Insert(point, object)
}

// subdivide splits the quadtree into four quadrants
func (qt *QuadTree[T]) subdivide() {
	x := qt.Boundary.CenterX
	z := qt.Boundary.CenterZ
	w := qt.Boundary.Width / 2
	d := qt.Boundary.Depth / 2

	qt.northWest = NewQuadTree[T](Rect{CenterX: x - w/2, CenterZ: z + d/2, Width: w, Depth: d}, qt.Capacity)
	qt.northEast = NewQuadTree[T](Rect{CenterX: x + w/2, CenterZ: z + d/2, Width: w, Depth: d}, qt.Capacity)
	qt.southWest = NewQuadTree[T](Rect{CenterX: x - w/2, CenterZ: z - d/2, Width: w, Depth: d}, qt.Capacity)
	qt.southEast = NewQuadTree[T](Rect{CenterX: x + w/2, CenterZ: z - d/2, Width: w, Depth: d}, qt.Capacity)
	qt.divided = true
}

// Query returns all objects whose point lies inside area.
func (qt *QuadTree[T]) Query(area Rect) []T {
	var found []T
	qt.walk(area, func(_ Vector3, object T) {
		found = append(found, object)
	})
	return found
}

// QueryRadius returns all objects within radius of center on the ground plane.
func (qt *QuadTree[T]) QueryRadius(center Vector3, radius float64) []T {
	area := Rect{CenterX: center.X, CenterZ: center.Z, Width: radius * 2, Depth: radius * 2}
	origin := center.Ground()
	r2 := radius * radius

	var found []T
	qt.walk(area, func(point Vector3, object T) {
		if point.Ground().Sub(origin).LengthSquared() <= r2 {
			found = append(found, object)
		}
	})
	return found
}

func (qt *QuadTree[T]) walk(area Rect, visit func(Vector3, T)) {
	if !qt.Boundary.intersects(area) {
		return
	}
	for i, point := range qt.points {
		if area.Contains(point) {
			visit(point, qt.objects[i])
		}
	}
	if !qt.divided {
		return
	}
	qt.northWest.walk(area, visit)
	qt.northEast.walk(area, visit)
	qt.southWest.walk(area, visit)
	qt.southEast.walk(area, visit)
}

// Clear empties the tree so it can be rebuilt in place.
func (qt *QuadTree[T]) Clear() {
	qt.points = qt.points[:0]
	clear(qt.objects)
	qt.objects = qt.objects[:0]
	qt.divided = false
	qt.northWest, qt.northEast, qt.southWest, qt.southEast = nil, nil, nil, nil
}

// Len returns the number of stored objects.
func (qt *QuadTree[T]) Len() int {
	n := len(qt.points)
	if qt.divided {
		n += qt.northWest.Len() + qt.northEast.Len() + qt.southWest.Len() + qt.southEast.Len()
	}
	return n
}
