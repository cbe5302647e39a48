package twilio

import (
	"encoding/xml"
)

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL string `xml:"url,attr"`
}

// StreamTwiML answers a voice webhook by connecting the call to a media
// stream at url.
func StreamTwiML(url string) ([]byte, error) {
	body, err := xml.MarshalIndent(twimlResponse{Connect: twimlConnect{Stream: twimlStream{URL: url}}}, "", "    ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
