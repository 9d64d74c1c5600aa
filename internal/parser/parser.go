// Package parser reads flashcards written as Q:/A:/C: blocks in markdown files.
// A level-one heading ("# Algebra") names the topic of the cards below it; cards
// before any heading belong to the default topic.
package parser

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/revisa/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	topicPrefix    = "# "
	separator      = "---"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingContext
)

// ParseFile reads a file from the given path and extracts all cards.
// The file name without extension is the default topic.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file, TopicFromPath(path))
}

// TopicFromPath returns the file name of path without its extension.
func TopicFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Parse reads from an io.Reader and extracts all cards.
func Parse(r io.Reader, defaultTopic string) ([]domain.Card, error) {
	p := &cardParser{topic: defaultTopic}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.line(scanner.Text())
	}
	p.finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p.cards, nil
}

type cardParser struct {
	cards []domain.Card
	card  domain.Card
	block []string
	state state
	topic string
}

func (p *cardParser) line(line string) {
	switch {
	case line == separator:
		p.finishCard()
	case strings.HasPrefix(line, topicPrefix):
		p.finishCard()
		p.topic = strings.TrimSpace(line[len(topicPrefix):])
	case strings.HasPrefix(line, questionPrefix):
		if p.state != seeking { // A new question always starts a new card
			p.finishCard()
		}
		p.begin(readingQuestion, line[len(questionPrefix):])
	case strings.HasPrefix(line, answerPrefix):
		p.flushBlock()
		p.begin(readingAnswer, line[len(answerPrefix):])
	case strings.HasPrefix(line, contextPrefix):
		p.flushBlock()
		p.begin(readingContext, line[len(contextPrefix):])
	case p.state != seeking:
		p.block = append(p.block, line)
	}
}

func (p *cardParser) begin(s state, rest string) {
	p.state = s
	p.block = append(p.block, strings.TrimPrefix(rest, " "))
}

// flushBlock stores the lines read so far into the field of the current state.
func (p *cardParser) flushBlock() {
	if len(p.block) == 0 {
		return
	}
	content := strings.TrimRight(strings.Join(p.block, "\n"), "\n")
	switch p.state {
	case readingQuestion:
		p.card.Question = content
	case readingAnswer:
		p.card.Answer = content
	case readingContext:
		p.card.Context = content
	}
	p.block = nil
}

func (p *cardParser) finishCard() {
	p.flushBlock()
	if p.card.Question != "" {
		p.card.TopicID = p.topic
		p.cards = append(p.cards, p.card)
	}
	p.card = domain.Card{}
	p.state = seeking
}
