// Package geometry は戦車と弾丸の当たり判定に使う 2D の幾何演算を提供します。
//
// 位置を返す演算はすべて小数点以下 2 桁に丸められます。
package geometry

import (
	"errors"
	"math"
)

const deg2rad = math.Pi / 180

// epsilon は丸め前に加算する値で、0.005 のような境界値を切り上げ側に寄せます。
const epsilon = 0x1p-52

// ErrPolygonTooFewPoints は 3 点未満でポリゴンを作ろうとしたときに返されます。
var ErrPolygonTooFewPoints = errors.New("geometry: polygon needs at least 3 points")

// Point は 2D 座標です。
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Line は 2 点を結ぶ線分です。
type Line struct {
	P1 Point `json:"p1" msgpack:"p1"`
	P2 Point `json:"p2" msgpack:"p2"`
}

// Circle は大まかな当たり判定に使う外接円です。
type Circle struct {
	Center Point
	Radius float64
}

// Polygon は頂点列と、その頂点列から導出した辺を保持します。
// 頂点の順序がそのまま巻き順になります。
type Polygon struct {
	points []Point
	lines  []Line
}

// NewPolygon は頂点列からポリゴンを作ります。頂点はコピーされます。
func NewPolygon(points []Point) (Polygon, error) {
	if len(points) < 3 {
		return Polygon{}, ErrPolygonTooFewPoints
	}
	pts := make([]Point, len(points))
	copy(pts, points)
	return Polygon{points: pts, lines: linesFromPoints(pts)}, nil
}

// MustPolygon は NewPolygon と同じですが、失敗時に panic します。
// 頂点数が固定のファクトリ内部でのみ使います。
func MustPolygon(points []Point) Polygon {
	p, err := NewPolygon(points)
	if err != nil {
		panic(err)
	}
	return p
}

// Points は頂点列のコピーを返します。
func (p Polygon) Points() []Point {
	out := make([]Point, len(p.points))
	copy(out, p.points)
	return out
}

// Lines は辺のコピーを返します。
func (p Polygon) Lines() []Line {
	out := make([]Line, len(p.lines))
	copy(out, p.lines)
	return out
}

func linesFromPoints(points []Point) []Line {
	lines := make([]Line, 0, len(points))
	for i := range points {
		next := points[(i+1)%len(points)]
		lines = append(lines, Line{P1: points[i], P2: next})
	}
	return lines
}

func roundTo(n, places float64) float64 {
	return math.Floor((n+epsilon)*places+0.5) / places
}

// Round2 は位置の出力に使う小数第 2 位への丸めです。
func Round2(n float64) float64 {
	return roundTo(n, 100)
}

// Round1 は割合やラベルに使う小数第 1 位への丸めです。
func Round1(n float64) float64 {
	return roundTo(n, 10)
}

// DegToRad は度をラジアンに変換します。
func DegToRad(deg float64) float64 {
	return deg * deg2rad
}

// Distance は 2 点間の距離を返します。
func Distance(p1, p2 Point) float64 {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// CirclesIntersect は 2 円の中心距離が半径の和より小さいかを返します。
// 接しているだけの円は交差とみなしません。
func CirclesIntersect(c1, c2 Circle) bool {
	return Distance(c1.Center, c2.Center) < c1.Radius+c2.Radius
}

// MovePoint は点を angle (ラジアン) 方向へ distance だけ移動します。
func MovePoint(p Point, angle, distance float64) Point {
	return Point{
		X: Round2(p.X + distance*math.Cos(angle)),
		Y: Round2(p.Y + distance*math.Sin(angle)),
	}
}

// RotatePointAround は点を center を中心に angle (ラジアン) 回転します。
func RotatePointAround(p, center Point, angle float64) Point {
	c := math.Cos(angle)
	s := math.Sin(angle)
	tx := p.X - center.X
	ty := p.Y - center.Y
	return Point{
		X: Round2(tx*c - ty*s + center.X),
		Y: Round2(tx*s + ty*c + center.Y),
	}
}

func transformPolygon(p Polygon, fn func(Point) Point) Polygon {
	pts := make([]Point, len(p.points))
	for i, pt := range p.points {
		pts[i] = fn(pt)
	}
	return MustPolygon(pts)
}

// MovePolygon は全頂点を MovePoint で移動した新しいポリゴンを返します。
func MovePolygon(p Polygon, angle, distance float64) Polygon {
	return transformPolygon(p, func(pt Point) Point {
		return MovePoint(pt, angle, distance)
	})
}

// RotatePolygonAround は全頂点を RotatePointAround で回転した新しいポリゴンを返します。
func RotatePolygonAround(p Polygon, center Point, angle float64) Polygon {
	return transformPolygon(p, func(pt Point) Point {
		return RotatePointAround(pt, center, angle)
	})
}

// PointInsidePolygon は even-odd ルールのレイキャストで内外判定をします。
// 辺上の点の扱いはアルゴリズムの結果に従います。
func PointInsidePolygon(point Point, polygon Polygon) bool {
	pts := polygon.points
	inside := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		xi, yi := pts[i].X, pts[i].Y
		xj, yj := pts[j].X, pts[j].Y
		if (yi > point.Y) != (yj > point.Y) &&
			point.X < (xj-xi)*(point.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// SegmentIntersection は 2 線分の交点を返します。平行な線分は交差しません。
func SegmentIntersection(l1, l2 Line) (Point, bool) {
	x1, y1 := l1.P1.X, l1.P1.Y
	x2, y2 := l1.P2.X, l1.P2.Y
	x3, y3 := l2.P1.X, l2.P1.Y
	x4, y4 := l2.P2.X, l2.P2.Y

	denominator := (y4-y3)*(x2-x1) - (x4-x3)*(y2-y1)
	if denominator == 0 {
		return Point{}, false
	}
	ua := ((x4-x3)*(y1-y3) - (y4-y3)*(x1-x3)) / denominator
	ub := ((x2-x1)*(y1-y3) - (y2-y1)*(x1-x3)) / denominator
	if ua < 0 || ua > 1 || ub < 0 || ub > 1 {
		return Point{}, false
	}
	return Point{X: x1 + ua*(x2-x1), Y: y1 + ua*(y2-y1)}, true
}

// PolygonsOverlap は p1 のいずれかの辺が p2 のいずれかの辺と交差するかを返します。
// 片方がもう片方に完全に含まれる場合は false です。
func PolygonsOverlap(p1, p2 Polygon) bool {
	for _, mine := range p1.lines {
		for _, theirs := range p2.lines {
			if _, ok := SegmentIntersection(mine, theirs); ok {
				return true
			}
		}
	}
	return false
}
