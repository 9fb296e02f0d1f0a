package badtag

//fbs:table
type Monster struct {
	HP int16 `fbs:"hp,optional"`
}
