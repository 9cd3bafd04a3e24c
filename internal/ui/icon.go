package ui

// iconBytes is a 16x16 RGBA PNG of a portrait silhouette.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x48, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0xa0, 0x36, 0x30,
	0x77, 0x0c, 0xfc, 0x8f, 0x0f, 0x53, 0xa4, 0x19, 0xaf, 0x21, 0xc4, 0x6a,
	0xc6, 0x6a, 0x08, 0x36, 0x05, 0x4f, 0x9f, 0xbf, 0x46, 0xc1, 0x78, 0x0d,
	0x21, 0xa4, 0x19, 0x97, 0x21, 0x83, 0xd8, 0x00, 0x8a, 0xc3, 0x80, 0xe4,
	0x98, 0xa0, 0x9a, 0x01, 0xb8, 0xfc, 0x8e, 0xcb, 0x3b, 0x58, 0xd3, 0x02,
	0x59, 0x9a, 0xb1, 0x79, 0x05, 0x5f, 0x20, 0xd2, 0x2e, 0x33, 0x91, 0x03,
	0x00, 0x97, 0xdd, 0x8f, 0x10, 0xfe, 0x30, 0xd1, 0x63, 0x00, 0x00, 0x00,
	0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
