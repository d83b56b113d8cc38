/*
Package config loads the enumerated keys of spec.md section 6 from a
YAML configuration file, the way
niceyeti-tabular/tabular/reinforcement/learning.go's FromYaml loads
training config: viper reads the file into a raw, loosely-typed
structure, and yaml.v3 is used a second time to decode the structured
sub-trees (the candidate-site list and the kinematic chain) that don't
fit viper's flat mapstructure tags.
*/
package config
