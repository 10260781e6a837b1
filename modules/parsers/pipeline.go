package parsers

import (
	"sync"

	"github.com/coffeegist/bofhound/modules/ui"
	"github.com/pkg/errors"
)

// ParsingPipeline fans every line of every data stream out to a set of
// tool parsers. In the parallel path whole streams are sharded across
// workers, each worker running its own fresh parser instances so no
// parser state is shared between goroutines.
type ParsingPipeline struct {
	factory ParserFactory
}

func NewParsingPipeline(factory ParserFactory) *ParsingPipeline {
	return &ParsingPipeline{factory: factory}
}

func (p *ParsingPipeline) Process(source DataSource, workers int) (*ParsingResult, error) {
	streams, err := source.Streams()
	if err != nil {
		return nil, err
	}
	if len(streams) == 0 {
		return nil, errors.New("no data streams found to parse")
	}

	if workers <= 1 || len(streams) == 1 {
		return p.processSequential(streams), nil
	}
	return p.processParallel(streams, workers), nil
}

func (p *ParsingPipeline) processSequential(streams []DataStream) *ParsingResult {
	result := NewParsingResult()
	toolparsers := p.factory()
	pb := ui.ProgressBar("Parsing data streams", len(streams))
	for _, stream := range streams {
		ui.Debug().Msgf("Parsing %v", stream.Identifier())
		if err := processStream(stream, toolparsers); err != nil {
			ui.Warn().Msgf("Failed parsing %v: %v", stream.Identifier(), err)
		}
		pb.Add(1)
	}
	pb.Finish()
	collect(result, toolparsers)
	return result
}

func (p *ParsingPipeline) processParallel(streams []DataStream, workers int) *ParsingResult {
	if workers > len(streams) {
		workers = len(streams)
	}

	queue := make(chan DataStream, len(streams))
	for _, stream := range streams {
		queue <- stream
	}
	close(queue)

	results := make(chan *ParsingResult, workers)
	pb := ui.ProgressBar("Parsing data streams", len(streams))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			workerresult := NewParsingResult()
			for stream := range queue {
				ui.Debug().Msgf("Parsing %v", stream.Identifier())
				// Fresh parsers per stream, record state never crosses files
				toolparsers := p.factory()
				if err := processStream(stream, toolparsers); err != nil {
					ui.Warn().Msgf("Failed parsing %v: %v", stream.Identifier(), err)
				}
				collect(workerresult, toolparsers)
				pb.Add(1)
			}
			results <- workerresult
		}()
	}
	wg.Wait()
	pb.Finish()
	close(results)

	result := NewParsingResult()
	for workerresult := range results {
		result.Merge(workerresult)
	}
	return result
}

func processStream(stream DataStream, toolparsers []ToolParser) error {
	iterator, err := stream.Lines()
	if err != nil {
		return err
	}
	defer iterator.Close()
	for {
		line, ok := iterator.Next()
		if !ok {
			break
		}
		for _, toolparser := range toolparsers {
			toolparser.ProcessLine(line)
		}
	}
	return iterator.Err()
}

func collect(result *ParsingResult, toolparsers []ToolParser) {
	for _, toolparser := range toolparsers {
		result.Add(toolparser.ObjectType(), toolparser.Results())
	}
}
