/*
	Package sculpt provides types, constants, and functions that have no other dependencies
	and can be used by all packages within the sculpting core.  This includes voxel and chunk
	coordinates, the typed property value used by brush property stores, error types shared
	across layers, leveled logging, and data serialization.
*/
package sculpt
