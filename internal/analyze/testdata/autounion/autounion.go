package autounion

//fbs:union
type Shape interface {
	shape()
}

//fbs:table
type Square struct {
	Side float32
}

func (Square) shape() {}

//fbs:table
type Circle struct {
	Radius float32
}

func (*Circle) shape() {}

//fbs:table
type Canvas struct {
	Shapes []string
	Focus  Shape
}
