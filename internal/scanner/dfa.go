package scanner

// charClass represents character classes for the boundary automaton.
type charClass uint8

const (
	classOther     charClass = iota // anything without structural meaning
	classSeparator                  // configured field separator
	classQuote                      // configured quote character
	classCR                         // \r
	classLF                         // \n
	classComment                    // comment character (only structural at record start)
	numCharClasses
)

// dfaState represents states in the DFA.
type dfaState uint8

const (
	stateRecordStart dfaState = iota
	stateFieldStart
	stateUnquoted
	stateQuoted
	stateQuoteInQuoted
	stateComment
	numStates
)

// dfaAction represents actions to perform during state transitions.
type dfaAction uint8

const (
	actionNone            dfaAction = iota
	actionContent                   // byte belongs to the current field
	actionEndField                  // separator closes the current field
	actionEndRecord                 // line terminator closes the record
	actionBareQuote                 // quote inside an unquoted field
	actionExtraneousQuote           // character after a closing quote
)

// transition represents a state transition in the DFA.
type transition struct {
	next   dfaState
	action dfaAction
}

// table holds the lookup tables for one configuration. A 256-entry class table
// fits in L1 cache and removes branches from character classification.
type table struct {
	classes     [256]charClass
	transitions [numStates][numCharClasses]transition
}

// newTable builds the tables for a separator, quote and comment byte.
// comment 0 disables comment detection.
func newTable(sep, quote, comment byte, lazy bool) *table {
	t := &table{}

	t.classes[sep] = classSeparator
	t.classes[quote] = classQuote
	t.classes['\r'] = classCR
	t.classes['\n'] = classLF
	if comment != 0 {
		t.classes[comment] = classComment
	}

	bareQuote := transition{stateUnquoted, actionBareQuote}
	extraneous := transition{stateUnquoted, actionExtraneousQuote}
	if lazy {
		bareQuote = transition{stateUnquoted, actionContent}
		extraneous = transition{stateUnquoted, actionContent}
	}
	endRecord := transition{stateRecordStart, actionEndRecord}

	// stateFieldStart: beginning of a field
	t.transitions[stateFieldStart] = [numCharClasses]transition{
		classOther:     {stateUnquoted, actionContent},
		classSeparator: {stateFieldStart, actionEndField},
		classQuote:     {stateQuoted, actionNone},
		classCR:        endRecord,
		classLF:        endRecord,
		classComment:   {stateUnquoted, actionContent},
	}

	// stateRecordStart: like a field start, but the comment character opens a comment line
	t.transitions[stateRecordStart] = t.transitions[stateFieldStart]
	t.transitions[stateRecordStart][classComment] = transition{stateComment, actionNone}

	// stateUnquoted: reading an unquoted field
	t.transitions[stateUnquoted] = [numCharClasses]transition{
		classOther:     {stateUnquoted, actionContent},
		classSeparator: {stateFieldStart, actionEndField},
		classQuote:     bareQuote,
		classCR:        endRecord,
		classLF:        endRecord,
		classComment:   {stateUnquoted, actionContent},
	}

	// stateQuoted: everything except the quote is content, line breaks included
	t.transitions[stateQuoted] = [numCharClasses]transition{
		classOther:     {stateQuoted, actionContent},
		classSeparator: {stateQuoted, actionContent},
		classQuote:     {stateQuoteInQuoted, actionNone},
		classCR:        {stateQuoted, actionContent},
		classLF:        {stateQuoted, actionContent},
		classComment:   {stateQuoted, actionContent},
	}

	// stateQuoteInQuoted: just read a quote inside a quoted field
	t.transitions[stateQuoteInQuoted] = [numCharClasses]transition{
		classOther:     extraneous,
		classSeparator: {stateFieldStart, actionEndField},
		classQuote:     {stateQuoted, actionContent},
		classCR:        endRecord,
		classLF:        endRecord,
		classComment:   extraneous,
	}

	// stateComment: the rest of the physical line is one field
	t.transitions[stateComment] = [numCharClasses]transition{
		classOther:     {stateComment, actionContent},
		classSeparator: {stateComment, actionContent},
		classQuote:     {stateComment, actionContent},
		classCR:        endRecord,
		classLF:        endRecord,
		classComment:   {stateComment, actionContent},
	}

	return t
}
