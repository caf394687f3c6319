package hash

// extensionTable is the frozen mapping of known extension hashes to their
// string form. It is not exhaustive of every extension the engine supports,
// only of the ones observed in shipped bundles.
var extensionTable = map[uint64]string{
	0x931e336d7646cc26: "animation",
	0xdcfb9e18fff13984: "animation_curves",
	0xaa5965f03029fa18: "bik",
	0xe301e8af94e3b5a3: "blend_set",
	0x18dead01056b72e9: "bones",
	0xb7893adf7567506a: "chroma",
	0xfe9754bd19814a47: "common_package",
	0x82645835e6b73232: "config",
	0x69108ded1e3e634b: "crypto",
	0x8fd0d44d20650b68: "data",
	0x9831ca893b0d087d: "entity",
	0x92d3ee038eeb610d: "flow",
	0x9efe0a916aae7880: "font",
	0xd526a27da14f1dc5: "ini",
	0xfa4a8e091a91201e: "ivf",
	0xa62f9297dc969e85: "keys",
	0x2a690fd348fe9ac5: "level",
	0xa14e8dfa2cd117e2: "lua",
	0xeac0b497876adedf: "material",
	0x3fcdd69156a46417: "mod",
	0xb277b11fe4a61d37: "mouse_cursor",
	0x169de9566953d264: "navdata",
	0x3b1fa9e8f6bac374: "network_config",
	0xad9c6d9ed1e5e77a: "package",
	0xa8193123526fad64: "particles",
	0xbf21403a3ab0bbb1: "physics_properties",
	0x27862fe24795319c: "render_config",
	0x9d0a795bfe818d19: "scene",
	0xcce8d5b5f5ae333f: "shader",
	0xe5ee32a477239a93: "shader_library",
	0x9e5c3cc74575aeb5: "shader_library_group",
	0xfe73c7dcff8a7ca5: "shading_environment",
	0x250e0a11ac8e26f8: "shading_environment_mapping",
	0xa27b4d04a9ba6f9e: "slug",
	0xa486d4045106165c: "state_machine",
	0x0d972bab10b40fd3: "strings",
	0xad2d3fa30d9ab394: "surface_properties",
	0xcd4238c6a0c69e32: "texture",
	0x99736be1fff739a4: "timpani_bank",
	0x00a3e6c59a2b9c6c: "timpani_master",
	0x19c792357c99f49b: "tome",
	0xe0a48d0be9a7453f: "unit",
	0xf7505933166d6755: "vector_field",
	0x535a7bd3e650d799: "wwise_bank",
	0xaf32095c82f2b070: "wwise_dep",
	0xd50a8b7e1c82b110: "wwise_metadata",
	0x504b55235d21440e: "wwise_stream",
}

// reverseExtensionTable is built once from extensionTable so extension
// strings (as seen on disk, e.g. "lua") can be turned back into hashes
// without re-hashing them (and so it stays in sync with extensionTable by
// construction).
var reverseExtensionTable = func() map[string]uint64 {
	m := make(map[string]uint64, len(extensionTable))
	for h, ext := range extensionTable {
		m[ext] = h
	}
	return m
}()

// ExtensionByHash looks up the extension string for a known ext_hash.
func ExtensionByHash(h uint64) (ext string, ok bool) {
	ext, ok = extensionTable[h]
	return ext, ok
}

// HashByExtension looks up the ext_hash for a known extension string.
func HashByExtension(ext string) (h uint64, ok bool) {
	h, ok = reverseExtensionTable[ext]
	return h, ok
}
