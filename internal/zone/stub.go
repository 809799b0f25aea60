package zone

// Stub returns an example zone model used across the test suites:
// a main track with 2 segments of 2 checkpoints each (start + 1 minor),
// stagesEndAtStageStarts set, and one bonus with a single checkpoint.
// Several tests depend on this exact shape; extend with care.
func Stub() *Zones {
	region := Region{
		Bottom: 0,
		Height: 512,
		Points: [][2]float64{{0, 0}, {0, 512}, {512, 512}, {512, 0}},
	}
	cp := Zone{Regions: []Region{region}}
	segment := func() Segment {
		return Segment{
			Checkpoints:           []Zone{cp, cp},
			LimitStartGroundSpeed: true,
			CheckpointsRequired:   true,
			CheckpointsOrdered:    true,
		}
	}

	return &Zones{
		FormatVersion: 1,
		DataTimestamp: 1697451975363,
		Tracks: Tracks{
			Main: MainTrack{
				StagesEndAtStageStarts: true,
				Zones: TrackZones{
					Segments: []Segment{segment(), segment()},
					End:      cp,
				},
			},
			Bonuses: []BonusTrack{
				{
					Zones: &TrackZones{
						Segments: []Segment{{
							Checkpoints:           []Zone{cp},
							LimitStartGroundSpeed: true,
							CheckpointsRequired:   true,
							CheckpointsOrdered:    true,
						}},
						End: cp,
					},
				},
			},
		},
	}
}
