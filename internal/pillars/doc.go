// Package pillars loads the content pillar catalogue: the themes items are
// filed under, their sub-themes, the keywords research ingestion scores source
// material with, and the author profile the quality battery checks against.
//
// A catalogue ships embedded; paths.pillars_file replaces it with a YAML file
// of the same shape.
package pillars
