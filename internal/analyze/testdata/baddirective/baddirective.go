package baddirective

//fbs:table
type Shape interface {
	Area() float64
}
