package bom

// DefaultConfig is the built-in process catalogue, used when no BOM config
// file is supplied. It matches the demo seed: one gift set boxes one of each
// ready product with its packaging.
const DefaultConfig = `{
  "processes": [
    {
      "name": "gift_set_assembly",
      "inputs": [
        {"product": "Soap", "ratio": 1},
        {"product": "Shampoo", "ratio": 1},
        {"product": "Lotion", "ratio": 1},
        {"product": "Powder", "ratio": 1},
        {"product": "Gift Box Cardboard", "ratio": 1},
        {"product": "Empty Thermacol", "ratio": 1}
      ],
      "output_product": "Gift Set",
      "output_ratio": 1
    }
  ]
}`

// Default parses DefaultConfig. The built-in catalogue is validated by New,
// so a parse failure here is a programming error.
func Default() *Registry {
	r, err := Parse([]byte(DefaultConfig))
	if err != nil {
		panic(err)
	}
	return r
}
