/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package darwin

import (
	"encoding/xml"
	"strings"
)

const (
	soapNamespace  = "http://schemas.xmlsoap.org/soap/envelope/"
	tokenNamespace = "http://thalesgroup.com/RTTI/2013-11-28/Token/types"
	ldbNamespace   = "http://thalesgroup.com/RTTI/2017-10-01/ldb/"

	// soapActionBase prefixes the SOAPAction header of every operation.
	soapActionBase = "http://thalesgroup.com/RTTI/2012-01-13/ldb/"
)

// Request envelopes. Prefixed names are written literally by encoding/xml.

type requestEnvelope struct {
	XMLName xml.Name      `xml:"soap:Envelope"`
	Soap    string        `xml:"xmlns:soap,attr"`
	Typ     string        `xml:"xmlns:typ,attr"`
	Ldb     string        `xml:"xmlns:ldb,attr"`
	Header  requestHeader `xml:"soap:Header"`
	Body    requestBody   `xml:"soap:Body"`
}

type requestHeader struct {
	TokenValue string `xml:"typ:AccessToken>typ:TokenValue"`
}

type requestBody struct {
	Departures *departureBoardRequest `xml:"ldb:GetDepartureBoardRequest,omitempty"`
	Details    *serviceDetailsRequest `xml:"ldb:GetServiceDetailsRequest,omitempty"`
}

type departureBoardRequest struct {
	NumRows int    `xml:"ldb:numRows"`
	CRS     string `xml:"ldb:crs"`
}

type serviceDetailsRequest struct {
	ServiceID string `xml:"ldb:serviceID"`
}

func newEnvelope(token string, body requestBody) requestEnvelope {
	return requestEnvelope{
		Soap:   soapNamespace,
		Typ:    tokenNamespace,
		Ldb:    ldbNamespace,
		Header: requestHeader{TokenValue: token},
		Body:   body,
	}
}

// Response envelopes. Tags carry local names only so any namespace prefix matches.

type departureBoardResponse struct {
	XMLName xml.Name
	Fault   *soapFault         `xml:"Body>Fault"`
	Result  stationBoardResult `xml:"Body>GetDepartureBoardResponse>GetStationBoardResult"`
}

type stationBoardResult struct {
	GeneratedAt  string           `xml:"generatedAt"`
	LocationName string           `xml:"locationName"`
	CRS          string           `xml:"crs"`
	Services     []serviceElement `xml:"trainServices>service"`
}

type serviceElement struct {
	ServiceID    string            `xml:"serviceID"`
	STD          string            `xml:"std"`
	ETD          string            `xml:"etd"`
	Platform     string            `xml:"platform"`
	Operator     string            `xml:"operator"`
	OperatorCode string            `xml:"operatorCode"`
	IsCancelled  bool              `xml:"isCancelled"`
	Destination  []locationElement `xml:"destination>location"`
}

type locationElement struct {
	Name string `xml:"locationName"`
	CRS  string `xml:"crs"`
}

// destinationText joins the names of every destination, as the station
// screens do for trains that divide.
func (s serviceElement) destinationText() string {
	names := make([]string, 0, len(s.Destination))
	for _, loc := range s.Destination {
		name := strings.TrimSpace(loc.Name)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return strings.Join(names, " & ")
}

type serviceDetailsResponse struct {
	XMLName xml.Name
	Fault   *soapFault            `xml:"Body>Fault"`
	Result  *serviceDetailsResult `xml:"Body>GetServiceDetailsResponse>GetServiceDetailsResult"`
}

type serviceDetailsResult struct {
	LocationName            string                 `xml:"locationName"`
	SubsequentCallingPoints *callingPointsEnvelope `xml:"subsequentCallingPoints"`
}

type callingPointsEnvelope struct {
	Lists []callingPointList `xml:"callingPointList"`
}

type callingPointList struct {
	Points []callingPoint `xml:"callingPoint"`
}

type callingPoint struct {
	LocationName string `xml:"locationName"`
	CRS          string `xml:"crs"`
	ST           string `xml:"st"`
	ET           string `xml:"et"`
	AT           string `xml:"at"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}
