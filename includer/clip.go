package includer

// Clip processing runs exactly once per fragment, at registration time,
// before any directive resolution sees the content.
//
// Bracketing clip: only the interior of the first clip-before..clip-after
// span survives, so a fragment file can carry standalone preview scaffolding
// around its reusable part. Excision clip: the interior of every
// clip-between..end-clip-between span is removed, everything else is kept.
// A marker without its counterpart leaves the content unclipped and reports
// an InvalidDirective condition.
func clipContent(content string, opts Options) (string, Conditions) {
	out, conds := clipBracketing(content, opts)

	// bracketing first, then excision runs over whatever survived
	out, exConds := clipExcision(out, opts)
	return out, append(conds, exConds...)
}

func clipBracketing(content string, opts Options) (string, Conditions) {
	dirs, _ := Scan(content, opts)

	var before, after, stray *Directive
	for i := range dirs {
		switch dirs[i].Kind {
		case KindClipBefore:
			if before == nil {
				before = &dirs[i]
			}
		case KindClipAfter:
			if before == nil {
				if stray == nil {
					stray = &dirs[i]
				}
			} else if after == nil {
				after = &dirs[i]
			}
		}
	}

	switch {
	case before != nil && after != nil:
		return content[before.Span.End:after.Span.Start], nil
	case before != nil:
		return content, Conditions{{
			Kind:    InvalidDirective,
			Span:    before.Span,
			Message: "clip-before without matching clip-after",
		}}
	case stray != nil:
		return content, Conditions{{
			Kind:    InvalidDirective,
			Span:    stray.Span,
			Message: "clip-after without preceding clip-before",
		}}
	default:
		return content, nil
	}
}

func clipExcision(content string, opts Options) (string, Conditions) {
	dirs, _ := Scan(content, opts)

	var conds Conditions
	var out []byte
	cursor := 0
	for i := range dirs {
		d := dirs[i]
		if d.Span.Start < cursor {
			// inside an already excised span
			continue
		}
		switch d.Kind {
		case KindClipBetween:
			if d.Match < 0 {
				conds = append(conds, Condition{
					Kind:    InvalidDirective,
					Span:    d.Span,
					Message: "clip-between without matching end-clip-between",
				})
				continue
			}
			out = append(out, content[cursor:d.Span.Start]...)
			cursor = dirs[d.Match].Span.End
		case KindEndClipBetween:
			if d.Match < 0 {
				conds = append(conds, Condition{
					Kind:    InvalidDirective,
					Span:    d.Span,
					Message: "end-clip-between without preceding clip-between",
				})
			}
		}
	}
	if cursor == 0 {
		// nothing excised, keep original including any unmatched markers
		return content, conds
	}
	out = append(out, content[cursor:]...)
	return string(out), conds
}
