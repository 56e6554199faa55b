package mcpserver

func describeAnalyze() string {
	return `Measures class cohesion in Python code: the share of (instance variable, method) pairs where the method uses the variable.

USE WHEN:
- Assessing whether a class holds together around shared state
- Finding classes that do several unrelated jobs
- Deciding where to split a large class

INTERPRETING RESULTS:
- cohesion is a percentage from 0 to 100; higher means methods share more state
- 0 means the class has no variables or no methods
- A method using none of the variables, or a static/class method, pulls the score down
- components > 1 means the methods fall into groups that share no variables
- unused_variables lists declared state no method touches

METRICS RETURNED:
- Per class: name, lineno, col_offset, cohesion, variables, per-method variables and flags
- Per class: components and unused_variables
- Summary: file/class/method counts and mean/median/stddev/min/max cohesion`
}

func describeLint() string {
	return `Reports Python classes whose cohesion is at or below a threshold, one finding per class.

USE WHEN:
- Gating a change on class design
- Listing the worst classes in a set of files

INTERPRETING RESULTS:
- Each finding gives path, line, column (0-based) and a message like "C501 Class has low (12.5%) cohesion"
- No findings means every class scored above the threshold

METRICS RETURNED:
- findings: path, line, column, message, checker`
}
