package selfembed

//fbs:table
type Node struct {
	*Node
	Value int32
}

//fbs:table
type Left struct {
	*Right
	L int32
}

//fbs:table
type Right struct {
	*Left
	R int32
}
