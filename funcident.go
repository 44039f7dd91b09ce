package reactor

import "reflect"

// reflectFuncPointer extracts the entry-point address of a func value. Go
// func values are not comparable with ==, so this is the standard escape
// hatch for delegate-style add/remove semantics (the same trick the
// multicast-delegate idiom this type mirrors relies on in other
// languages' combine/remove implementations).
func reflectFuncPointer(f any) uintptr {
	return reflect.ValueOf(f).Pointer()
}
