package badunion

//fbs:table
type Weapon struct {
	Damage int16
}

//fbs:table
type Monster struct {
	Equipped any `fbs:",union=Weapon"`
}
