// README: Opaque identifiers shared by rides, drivers and passengers.
package types

type ID string

func (id ID) String() string { return string(id) }
