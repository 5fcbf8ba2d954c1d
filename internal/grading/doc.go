// Package grading settles betting market groups.
//
// A rule's grading definition holds a metric expression over the match
// result and the group's dynamic parameters, and one resolution entry per
// market mapping outcome labels to boolean expressions over the metric:
//
//	metric: "{result.hometeam} - {result.awayteam}"
//	resolutions:
//	  - win: "{metric} > 0"
//	    not_win: "{metric} <= 0"
//	    void: "False"
//
// Expressions are expanded with package dynamic and then evaluated by a
// restricted evaluator that admits numeric literals, arithmetic,
// comparisons and the boolean connectives and/or/not. Anything else is
// rejected before evaluation.
//
// For every market exactly one outcome must hold. Zero or several true
// outcomes is an InvariantError; grading never picks a default.
package grading
